// Package models declares the entity shapes of the route-management
// application's tables, used by sync operations to reconcile live tables.
package models

import (
	"database/sql"
	"time"
)

// Role is a user's capability in the web application.
type Role string

// Roles.
const (
	RoleAdmin     Role = "admin"
	RoleCashier   Role = "cajero"
	RoleDriver    Role = "conductor"
	RolePassenger Role = "pasajero"
)

// User is an account of the web application.
type User struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:nombre;size:120;not null"`
	Email     string    `gorm:"column:email;size:255;not null;uniqueIndex"`
	Role      Role      `gorm:"column:rol;size:20;not null;default:pasajero"`
	Active    bool      `gorm:"column:activo;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName implements gorm's tabler.
func (User) TableName() string { return "usuarios" }

// Driver is a user licensed to operate routes.
type Driver struct {
	ID        uint           `gorm:"column:id;primaryKey"`
	UserID    uint           `gorm:"column:usuario_id;not null;index"`
	License   string         `gorm:"column:licencia;size:40;not null"`
	Phone     sql.NullString `gorm:"column:telefono;size:30"`
	Active    bool           `gorm:"column:activo;not null;default:true"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

// TableName implements gorm's tabler.
func (Driver) TableName() string { return "conductores" }

// Route is a named itinerary between two stops.
type Route struct {
	ID          uint      `gorm:"column:id;primaryKey"`
	Name        string    `gorm:"column:nombre;size:120;not null"`
	Origin      string    `gorm:"column:origen;size:120;not null"`
	Destination string    `gorm:"column:destino;size:120;not null"`
	Fare        float64   `gorm:"column:tarifa;type:numeric(10,2);not null;default:0"`
	Active      bool      `gorm:"column:activa;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

// TableName implements gorm's tabler.
func (Route) TableName() string { return "rutas" }

// Frequency is a scheduled departure on a route; passengers hold tickets
// against it.
type Frequency struct {
	ID        uint          `gorm:"column:id;primaryKey"`
	RouteID   uint          `gorm:"column:ruta_id;not null;index"`
	DriverID  sql.NullInt64 `gorm:"column:conductor_id;index"`
	Departure time.Time     `gorm:"column:salida;not null"`
	Status    string        `gorm:"column:estado;size:20;not null;default:activa"`
	OwnerType string        `gorm:"column:propietario_tipo;size:20"`
	Seats     int           `gorm:"column:asientos;not null;default:0"`
	CreatedAt time.Time     `gorm:"column:created_at"`
	UpdatedAt time.Time     `gorm:"column:updated_at"`
}

// TableName implements gorm's tabler.
func (Frequency) TableName() string { return "frecuencias" }

// CashClosure is the end-of-shift cash register reconciliation.
type CashClosure struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	CashierID uint      `gorm:"column:cajero_id;not null;index"`
	OpenedAt  time.Time `gorm:"column:apertura;not null"`
	ClosedAt  time.Time `gorm:"column:cierre"`
	Expected  float64   `gorm:"column:monto_esperado;type:numeric(12,2);not null;default:0"`
	Counted   float64   `gorm:"column:monto_contado;type:numeric(12,2);not null;default:0"`
	Notes     string    `gorm:"column:observaciones;type:text"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName implements gorm's tabler.
func (CashClosure) TableName() string { return "cierres_caja" }

// Transaction is a single sale or refund recorded at the register.
type Transaction struct {
	ID            uint           `gorm:"column:id;primaryKey"`
	CashClosureID sql.NullInt64  `gorm:"column:cierre_caja_id;index"`
	FrequencyID   sql.NullInt64  `gorm:"column:frecuencia_id;index"`
	Amount        float64        `gorm:"column:monto;type:numeric(10,2);not null"`
	Method        string         `gorm:"column:metodo_pago;size:20;not null;default:efectivo"`
	Receipt       sql.NullString `gorm:"column:comprobante;size:255"`
	CreatedAt     time.Time      `gorm:"column:created_at"`
}

// TableName implements gorm's tabler.
func (Transaction) TableName() string { return "transacciones" }
