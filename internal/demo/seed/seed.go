// Package seed loads the demo shop data used by the chat examples.
package seed

import (
	"context"
	"database/sql"
	"fmt"
)

type User struct {
	Name  string
	Email string
	Hobby string
	Job   string
	Age   int
}

type Product struct {
	Name     string
	Category string
	Price    float64
	Stock    int
}

type Order struct {
	User   int // index into Users
	Status string
}

type OrderItem struct {
	Order    int // index into Orders
	Product  int // index into Products
	Quantity int
}

var (
	Users = []User{
		{"john doe", "john.doe@example.com", "Photography", "Software Engineer", 29},
		{"jane smith", "jane.smith@example.com", "Painting", "Graphic Designer", 34},
		{"alice brown", "alice.brown@example.com", "Hiking", "Data Scientist", 27},
		{"bob johnson", "bob.johnson@example.com", "Cycling", "Marketing Manager", 41},
		{"carol lee", "carol.lee@example.com", "Cooking", "Teacher", 38},
	}
	Products = []Product{
		{"Wireless Mouse", "Electronics", 24.99, 120},
		{"Mechanical Keyboard", "Electronics", 79.99, 85},
		{"Noise Cancelling Headphones", "Electronics", 129.99, 60},
		{"Running Shoes", "Apparel", 59.99, 150},
		{"Water Bottle", "Outdoors", 14.99, 200},
	}
	Orders = []Order{
		{User: 0, Status: "completed"},
		{User: 1, Status: "shipped"},
		{User: 2, Status: "processing"},
	}
	OrderItems = []OrderItem{
		{Order: 0, Product: 0, Quantity: 2},
		{Order: 0, Product: 4, Quantity: 1},
		{Order: 1, Product: 1, Quantity: 1},
		{Order: 1, Product: 3, Quantity: 1},
		{Order: 2, Product: 2, Quantity: 1},
	}
)

const (
	insertUserQuery    = `INSERT INTO users (name, email, hobby, job, age) VALUES ($1, $2, $3, $4, $5) RETURNING user_id`
	insertProductQuery = `INSERT INTO products (name, category, price, stock) VALUES ($1, $2, $3, $4) RETURNING product_id`
	insertOrderQuery   = `INSERT INTO orders (user_id, status) VALUES ($1, $2) RETURNING order_id`
	insertItemQuery    = `INSERT INTO order_items (order_id, product_id, quantity, unit_price) VALUES ($1, $2, $3, $4)`
	updateTotalsQuery  = `
UPDATE orders
SET total_amount = (
    SELECT COALESCE(SUM(order_items.quantity * order_items.unit_price), 0)
    FROM order_items
    WHERE order_items.order_id = orders.order_id
)`
)

// clearOrder deletes children before parents.
var clearOrder = []string{"order_items", "orders", "products", "users"}

type Summary struct {
	Users      int
	Products   int
	Orders     int
	OrderItems int
}

// Seed replaces all demo rows in one transaction. Running it twice leaves the
// same data behind.
func Seed(ctx context.Context, db *sql.DB) (Summary, error) {
	if db == nil {
		return Summary{}, fmt.Errorf("database is not configured")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range clearOrder {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return Summary{}, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	userIDs := make([]int64, len(Users))
	for i, user := range Users {
		if err := tx.QueryRowContext(ctx, insertUserQuery, user.Name, user.Email, user.Hobby, user.Job, user.Age).Scan(&userIDs[i]); err != nil {
			return Summary{}, fmt.Errorf("insert user %q: %w", user.Email, err)
		}
	}

	productIDs := make([]int64, len(Products))
	for i, product := range Products {
		if err := tx.QueryRowContext(ctx, insertProductQuery, product.Name, product.Category, product.Price, product.Stock).Scan(&productIDs[i]); err != nil {
			return Summary{}, fmt.Errorf("insert product %q: %w", product.Name, err)
		}
	}

	orderIDs := make([]int64, len(Orders))
	for i, order := range Orders {
		if err := tx.QueryRowContext(ctx, insertOrderQuery, userIDs[order.User], order.Status).Scan(&orderIDs[i]); err != nil {
			return Summary{}, fmt.Errorf("insert order %d: %w", i+1, err)
		}
	}

	for _, item := range OrderItems {
		price := Products[item.Product].Price
		if _, err := tx.ExecContext(ctx, insertItemQuery, orderIDs[item.Order], productIDs[item.Product], item.Quantity, price); err != nil {
			return Summary{}, fmt.Errorf("insert order item: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, updateTotalsQuery); err != nil {
		return Summary{}, fmt.Errorf("update order totals: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Summary{}, fmt.Errorf("commit: %w", err)
	}

	return Summary{
		Users:      len(Users),
		Products:   len(Products),
		Orders:     len(Orders),
		OrderItems: len(OrderItems),
	}, nil
}

// OrderTotal is the amount the seeded order at index will carry after Seed.
func OrderTotal(index int) float64 {
	var total float64
	for _, item := range OrderItems {
		if item.Order == index {
			total += float64(item.Quantity) * Products[item.Product].Price
		}
	}
	return total
}
