package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	Name           string
	Role           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Client struct {
	ID        uuid.UUID
	Name      string
	CpfCnpj   string
	Phone     pgtype.Text
	Email     pgtype.Text
	Address   pgtype.Text
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Vehicle struct {
	ID         uuid.UUID
	Plate      string
	Model      string
	Brand      string
	Kilometers int32
	Year       pgtype.Int4
	ClientID   uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Part struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	UnitPrice   pgtype.Numeric
	Quantity    int32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Order struct {
	ID          uuid.UUID
	ClientID    uuid.UUID
	VehicleID   uuid.UUID
	Description pgtype.Text
	Kilometers  int32
	Discount    pgtype.Numeric
	TotalValue  pgtype.Numeric
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Service is a labor line item on an order.
type Service struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	Description string
	Price       pgtype.Numeric
	CreatedAt   time.Time
}

// OrderItem links an order to a part with a quantity and a unit price
// snapshot taken when the order was written.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	PartID    uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	CreatedAt time.Time
}

// OrderItemWithPart is an order item joined with its part's current name,
// used when hydrating order responses.
type OrderItemWithPart struct {
	OrderItem
	PartName string
}
