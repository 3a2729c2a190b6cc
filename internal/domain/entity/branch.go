package entity

// Branch vista de solo lectura del registro de sucursales.
// Code se usa en la numeración de facturas (INV-{Code}-...).
type Branch struct {
	ID       string
	Code     string
	Name     string
	IsActive bool
}
