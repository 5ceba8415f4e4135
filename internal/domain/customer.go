package domain

// Customer запись о клиенте, получаемая из справочника клиентов
type Customer struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}

// Product товар из каталога
type Product struct {
	ID       string
	Name     string
	Category string
	Price    Money
	Stock    int
}

// PurchasedProduct товар, списанный под заказ
type PurchasedProduct struct {
	Product  Product
	Quantity int
}
