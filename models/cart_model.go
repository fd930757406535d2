package models

type CartItem struct {
	ProductoID string `bson:"producto" json:"producto"`
	Cantidad   int    `bson:"cantidad" json:"cantidad"`
}

type Cart struct {
	ID        string     `bson:"_id" json:"_id"`
	UsuarioID string     `bson:"usuario_id" json:"usuario_id"`
	Productos []CartItem `bson:"productos" json:"productos"`
}

// CartLine is a cart item joined with its product for display.
type CartLine struct {
	Producto *Product `json:"producto"`
	Cantidad int      `json:"cantidad"`
}
