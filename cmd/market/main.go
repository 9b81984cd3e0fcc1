// Package main запускает интерактивный терминальный клиент маркетплейса.
//
// Все команды выполняются последовательно на одной горутине: мутации
// сессии и корзины не пересекаются, как того требует модель клиента.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/ecommerce-system/internal/authz"
	"github.com/mmeshcher/ecommerce-system/internal/cart"
	"github.com/mmeshcher/ecommerce-system/internal/checkout"
	"github.com/mmeshcher/ecommerce-system/internal/config"
	"github.com/mmeshcher/ecommerce-system/internal/credentials"
	"github.com/mmeshcher/ecommerce-system/internal/gateway"
	"github.com/mmeshcher/ecommerce-system/internal/model"
	"github.com/mmeshcher/ecommerce-system/internal/session"
)

// app связывает компоненты клиента и состояние интерактивной сессии.
type app struct {
	gw       *gateway.Client
	sessions *session.Manager
	basket   *cart.Cart
	checkout *checkout.Coordinator
	scanner  *bufio.Scanner
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.ParseClient()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	tokenPath := cfg.TokenFile
	if tokenPath == "" {
		tokenPath, err = credentials.DefaultPath()
		if err != nil {
			sugar.Fatalw("token path error", "error", err.Error())
		}
	}

	store := credentials.NewFileStore(tokenPath)
	gw := gateway.NewClient(cfg.ServerAddress, store)

	a := &app{
		gw:      gw,
		basket:  cart.New(),
		scanner: bufio.NewScanner(os.Stdin),
	}

	// Принудительная инвалидация: корзина не переживает сессию.
	a.sessions = session.NewManager(gw, store, func() {
		a.basket.Clear()
		fmt.Println("Session expired, please log in again.")
	})
	gw.OnUnauthorized(a.sessions.Invalidate)

	a.checkout = checkout.NewCoordinator(gw, a.basket, func() {
		a.showOrders(context.Background())
	})

	ctx := context.Background()
	a.sessions.Initialize(ctx)

	if s := a.sessions.Current(); s.Authenticated() {
		fmt.Printf("Logged in as %s (%s)\n", s.User.Name, s.User.Role)
	}

	a.run(ctx)
}

func (a *app) run(ctx context.Context) {
	fmt.Println("Type 'help' for the command list.")

	for {
		fmt.Print("> ")
		if !a.scanner.Scan() {
			return
		}

		fields := strings.Fields(a.scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "help":
			printHelp()
		case "register":
			a.register(ctx)
		case "login":
			a.login(ctx)
		case "logout":
			a.sessions.Logout()
			a.basket.Clear()
			fmt.Println("Logged out.")
		case "whoami":
			a.whoami()
		case "products":
			a.showProducts(ctx)
		case "add":
			a.addToCart(ctx, args)
		case "cart":
			a.showCart()
		case "checkout":
			a.doCheckout(ctx)
		case "orders":
			a.orders(ctx)
		case "product-add":
			a.productAdd(ctx)
		case "product-update":
			a.productUpdate(ctx, args)
		case "product-delete":
			a.productDelete(ctx, args)
		case "product-orders":
			a.productOrders(ctx, args)
		case "exit", "quit":
			return
		default:
			fmt.Printf("Unknown command %q, type 'help'.\n", cmd)
		}
	}
}

func printHelp() {
	fmt.Println(`Commands:
  register                 create an account
  login                    log in
  logout                   log out and drop the cart
  whoami                   show the current identity
  products                 list the catalog
  add <product-id>         add one unit to the cart (customer)
  cart                     show the cart and its total (customer)
  checkout                 place an order from the cart (customer)
  orders                   show order history (customer)
  product-add              create a product (supplier)
  product-update <id>      update a product (supplier)
  product-delete <id>      delete a product (supplier)
  product-orders <id>      show orders of a product (supplier)
  exit                     quit`)
}

// guard проверяет доступ к команде, требующей роль required, и печатает
// подсказку при отказе.
func (a *app) guard(required model.Role) bool {
	switch authz.Decide(a.sessions.Current(), required) {
	case authz.Allow:
		return true
	case authz.RedirectLogin:
		fmt.Println("Please log in first.")
	case authz.RedirectHome:
		home := authz.HomeFor(a.sessions.Current().User.Role)
		fmt.Printf("This command is not available for your role, back to %s.\n", home)
	}
	return false
}

func (a *app) prompt(label string) string {
	fmt.Print(label + ": ")
	if !a.scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(a.scanner.Text())
}

func (a *app) register(ctx context.Context) {
	name := a.prompt("Name")
	email := a.prompt("Email")
	password := a.prompt("Password")
	role := model.Role(a.prompt("Role (supplier/customer)"))

	err := a.gw.Register(ctx, name, email, password, role)
	if err != nil {
		var valErr *gateway.ValidationError
		if errors.As(err, &valErr) {
			for field, msgs := range valErr.Fields {
				for _, msg := range msgs {
					fmt.Printf("%s: %s\n", field, msg)
				}
			}
			return
		}
		fmt.Println("An error occurred. Please try again.")
		return
	}

	fmt.Println("Registered, you can log in now.")
}

func (a *app) login(ctx context.Context) {
	email := a.prompt("Email")
	password := a.prompt("Password")

	user, err := a.sessions.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidCredentials) {
			fmt.Println("Invalid login details")
			return
		}
		fmt.Printf("Login failed: %v\n", err)
		return
	}

	fmt.Printf("Welcome, %s! Home view: %s\n", user.Name, authz.HomeFor(user.Role))
}

func (a *app) whoami() {
	s := a.sessions.Current()
	if !s.Authenticated() {
		fmt.Println("Not logged in.")
		return
	}
	fmt.Printf("%s <%s>, role %s\n", s.User.Name, s.User.Email, s.User.Role)
}

func (a *app) showProducts(ctx context.Context) {
	if !a.sessions.Current().Authenticated() {
		fmt.Println("Please log in first.")
		return
	}

	products, err := a.gw.ListProducts(ctx)
	if err != nil {
		fmt.Println("Failed to fetch products.")
		return
	}
	if len(products) == 0 {
		fmt.Println("No products available")
		return
	}

	for _, p := range products {
		fmt.Printf("#%d %s - $%s, %d in stock\n    %s\n", p.ID, p.Name, p.Price.StringFixed(2), p.Quantity, p.Description)
	}
}

func (a *app) addToCart(ctx context.Context, args []string) {
	if !a.guard(model.RoleCustomer) {
		return
	}

	id, err := parseIDArg(args)
	if err != nil {
		fmt.Println("Usage: add <product-id>")
		return
	}

	// Свежий снимок товара: проверка остатка идёт по последним известным данным.
	products, err := a.gw.ListProducts(ctx)
	if err != nil {
		fmt.Println("Failed to fetch products.")
		return
	}

	for _, p := range products {
		if p.ID != id {
			continue
		}
		if err := a.basket.Add(p); err != nil {
			if errors.Is(err, cart.ErrStockExceeded) {
				fmt.Println("Not enough stock available")
				return
			}
			fmt.Printf("Add failed: %v\n", err)
			return
		}
		fmt.Printf("Added %s to the cart.\n", p.Name)
		return
	}

	fmt.Println("No such product.")
}

func (a *app) showCart() {
	if !a.guard(model.RoleCustomer) {
		return
	}

	lines := a.basket.Lines()
	if len(lines) == 0 {
		fmt.Println("The cart is empty.")
		return
	}

	for _, l := range lines {
		fmt.Printf("#%d %s x%d - $%s\n", l.ProductID, l.Product.Name, l.Quantity, l.Product.Price.StringFixed(2))
	}
	fmt.Printf("Total: $%s\n", a.basket.Total().StringFixed(2))
}

func (a *app) doCheckout(ctx context.Context) {
	if !a.guard(model.RoleCustomer) {
		return
	}
	if a.basket.Empty() {
		fmt.Println("The cart is empty.")
		return
	}

	orderID, err := a.checkout.Checkout(ctx)
	if err != nil {
		var rejected *gateway.CheckoutError
		if errors.As(err, &rejected) {
			fmt.Println(rejected.Reason)
			return
		}
		fmt.Printf("Checkout failed: %v\n", err)
		return
	}

	fmt.Printf("Order #%d placed.\n", orderID)
}

func (a *app) orders(ctx context.Context) {
	if !a.guard(model.RoleCustomer) {
		return
	}
	a.showOrders(ctx)
}

func (a *app) showOrders(ctx context.Context) {
	orders, err := a.gw.ListOrders(ctx)
	if err != nil {
		fmt.Println("Failed to fetch orders.")
		return
	}
	if len(orders) == 0 {
		fmt.Println("No orders available")
		return
	}

	for _, o := range orders {
		fmt.Printf("Order #%d, total $%s\n", o.ID, o.Total.StringFixed(2))
		for _, item := range o.Items {
			fmt.Printf("    %s - Quantity: %d\n", item.Product.Name, item.Quantity)
		}
	}
}

func (a *app) productAdd(ctx context.Context) {
	if !a.guard(model.RoleSupplier) {
		return
	}

	in, ok := a.promptProduct()
	if !ok {
		return
	}

	p, err := a.gw.CreateProduct(ctx, in)
	if err != nil {
		fmt.Println("Failed to save product.")
		return
	}
	fmt.Printf("Product #%d created.\n", p.ID)
}

func (a *app) productUpdate(ctx context.Context, args []string) {
	if !a.guard(model.RoleSupplier) {
		return
	}

	id, err := parseIDArg(args)
	if err != nil {
		fmt.Println("Usage: product-update <id>")
		return
	}

	in, ok := a.promptProduct()
	if !ok {
		return
	}

	if _, err := a.gw.UpdateProduct(ctx, id, in); err != nil {
		fmt.Println("Failed to save product.")
		return
	}
	fmt.Println("Product updated.")
}

func (a *app) productDelete(ctx context.Context, args []string) {
	if !a.guard(model.RoleSupplier) {
		return
	}

	id, err := parseIDArg(args)
	if err != nil {
		fmt.Println("Usage: product-delete <id>")
		return
	}

	if err := a.gw.DeleteProduct(ctx, id); err != nil {
		fmt.Println("Failed to delete product.")
		return
	}
	fmt.Println("Product deleted.")
}

func (a *app) productOrders(ctx context.Context, args []string) {
	if !a.guard(model.RoleSupplier) {
		return
	}

	id, err := parseIDArg(args)
	if err != nil {
		fmt.Println("Usage: product-orders <id>")
		return
	}

	orders, err := a.gw.ListProductOrders(ctx, id)
	if err != nil {
		fmt.Println("Failed to fetch orders.")
		return
	}
	if len(orders) == 0 {
		fmt.Println("No orders found for this product.")
		return
	}

	for _, po := range orders {
		name := ""
		if po.Order.User != nil {
			name = po.Order.User.Name
		}
		fmt.Printf("Order #%d - user %s, quantity %d\n", po.Order.ID, name, po.Quantity)
	}
}

func (a *app) promptProduct() (model.ProductInput, bool) {
	var in model.ProductInput

	in.Name = a.prompt("Product name")
	in.Description = a.prompt("Description")

	price, err := decimal.NewFromString(a.prompt("Price"))
	if err != nil {
		fmt.Println("Invalid price.")
		return in, false
	}
	in.Price = price

	quantity, err := strconv.Atoi(a.prompt("Quantity"))
	if err != nil {
		fmt.Println("Invalid quantity.")
		return in, false
	}
	in.Quantity = quantity

	return in, true
}

func parseIDArg(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one argument")
	}
	return strconv.ParseInt(args[0], 10, 64)
}
