package entity

import "time"

// Warehouse representa una bodega donde se almacena inventario (multi-bodega).
type Warehouse struct {
	ID          string
	Description string
	CreatedAt   time.Time
}
