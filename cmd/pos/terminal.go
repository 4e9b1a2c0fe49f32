package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/picosretail/pos-terminal/internal/api"
	"github.com/picosretail/pos-terminal/internal/cart"
	"github.com/picosretail/pos-terminal/internal/checkout"
	"github.com/picosretail/pos-terminal/internal/session"
	"github.com/picosretail/pos-terminal/internal/state"
	"github.com/picosretail/pos-terminal/pkg/config"
	pkgerrors "github.com/picosretail/pos-terminal/pkg/errors"
	"github.com/picosretail/pos-terminal/pkg/logger"
	"github.com/picosretail/pos-terminal/pkg/money"
)

// terminal is the line-oriented operator console. It owns the cart and
// dispatches typed commands onto the API bindings; everything session-shaped
// lives below it.
type terminal struct {
	cfg     *config.Config
	logg    *logger.Logger
	state   *state.Store
	session session.Store
	cart    *cart.Cart
	builder *checkout.Builder

	auth      *api.Auth
	products  *api.Products
	sales     *api.Sales
	cash      *api.Cash
	customers *api.Customers
	reports   *api.Reports
	admin     *api.Admin
}

// onSessionExpired fires from the transport layer when a refresh dies. The
// cart survives in memory; credentials and persisted session state are
// already gone.
func (t *terminal) onSessionExpired() {
	fmt.Println("session expired, please log in again")
}

func (t *terminal) restoreCart(ctx context.Context) error {
	raw, ok, err := t.state.Get(ctx, state.KeyCart)
	if err != nil || !ok {
		return err
	}
	return t.cart.Restore([]byte(raw))
}

func (t *terminal) persistCart(ctx context.Context) {
	raw, err := t.cart.Snapshot()
	if err != nil {
		t.logg.Error(ctx, "snapshotting cart", err)
		return
	}
	if err := t.state.Put(ctx, state.KeyCart, string(raw)); err != nil {
		t.logg.Error(ctx, "persisting cart", err)
	}
}

func (t *terminal) run(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("picos terminal ready (help for commands)")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			return nil
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		if err := t.dispatch(ctx, fields[0], fields[1:]); err != nil {
			printError(err)
		}
	}
}

func (t *terminal) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		printHelp()
		return nil
	case "login":
		return t.cmdLogin(ctx, args)
	case "logout":
		return t.cmdLogout(ctx)
	case "whoami":
		return t.cmdWhoami()
	case "products":
		return t.cmdProducts(ctx)
	case "add":
		return t.cmdAdd(ctx, args)
	case "remove":
		return t.cmdRemove(ctx, args)
	case "qty":
		return t.cmdQty(ctx, args)
	case "discount":
		return t.cmdDiscount(ctx, args)
	case "authorize":
		return t.cmdAuthorize(args)
	case "cart":
		return t.cmdCart()
	case "clear":
		return t.cmdClear(ctx)
	case "pay":
		return t.cmdPay(ctx, args)
	case "open-session":
		return t.cmdOpenSession(ctx, args)
	case "close-session":
		return t.cmdCloseSession(ctx, args)
	case "movement":
		return t.cmdMovement(ctx, args)
	case "ticket":
		return t.cmdTicket(ctx, args)
	case "refund":
		return t.cmdRefund(ctx, args)
	case "customers":
		return t.cmdCustomers(ctx, args)
	case "summary":
		return t.cmdSummary(ctx, args)
	case "ips":
		return t.cmdIPs(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (t *terminal) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: login <username> <password>")
	}
	resp, err := t.auth.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if err := t.session.Set(ctx, session.Credentials{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Username:     args[0],
	}); err != nil {
		return err
	}
	fmt.Printf("logged in as %s\n", args[0])
	return nil
}

func (t *terminal) cmdLogout(ctx context.Context) error {
	if err := t.session.Clear(ctx); err != nil {
		return err
	}
	if err := t.state.ClearSessionScoped(ctx); err != nil {
		return err
	}
	t.cart.Clear()
	fmt.Println("logged out")
	return nil
}

func (t *terminal) cmdWhoami() error {
	creds, held := t.session.Get()
	if !held {
		fmt.Println("not logged in")
		return nil
	}
	fmt.Println(creds.Username)
	return nil
}

func (t *terminal) cmdProducts(ctx context.Context) error {
	items, err := t.products.List(ctx, 0, 100)
	if err != nil {
		return err
	}
	for _, p := range items {
		fmt.Printf("%4d  %-30s %10s\n", p.ID, p.Name, money.Format(money.Parse(p.BasePrice)))
	}
	return nil
}

func (t *terminal) cmdAdd(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: add <product-id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad product id %q", args[0])
	}

	// The catalog page is the source of the product snapshot; look the
	// product up so the cart line carries current name and price.
	items, err := t.products.List(ctx, 0, 1000)
	if err != nil {
		return err
	}
	for _, p := range items {
		if p.ID == id {
			t.cart.AddItem(p)
			t.persistCart(ctx)
			return t.cmdCart()
		}
	}
	return fmt.Errorf("product %d not found", id)
}

func (t *terminal) cmdRemove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: remove <product-id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad product id %q", args[0])
	}
	t.cart.RemoveItem(id)
	t.persistCart(ctx)
	return t.cmdCart()
}

func (t *terminal) cmdQty(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: qty <product-id> <quantity>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad product id %q", args[0])
	}
	t.cart.UpdateQuantity(id, args[1])
	t.persistCart(ctx)
	return t.cmdCart()
}

func (t *terminal) cmdDiscount(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: discount <product-id> <percent>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad product id %q", args[0])
	}
	t.cart.UpdateDiscount(id, args[1])
	t.persistCart(ctx)
	return t.cmdCart()
}

func (t *terminal) cmdAuthorize(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: authorize <master-password>")
	}
	t.cart.SetMasterPassword(args[0])
	fmt.Println("supervisor authorization cached for next sale")
	return nil
}

func (t *terminal) cmdCart() error {
	lines := t.cart.Lines()
	if len(lines) == 0 {
		fmt.Println("cart is empty")
		return nil
	}
	for _, line := range lines {
		fmt.Printf("%4d  %-30s x%-6s -%s%%\n",
			line.Product.ID, line.Product.Name, line.Quantity, line.DiscountPercent)
	}
	totals := t.cart.Totals()
	fmt.Printf("subtotal %s  tax %s  total %s\n",
		money.Format(totals.Subtotal), money.Format(totals.Tax), money.Format(totals.Total))
	return nil
}

func (t *terminal) cmdClear(ctx context.Context) error {
	t.cart.Clear()
	if err := t.state.Delete(ctx, state.KeyCart); err != nil {
		return err
	}
	fmt.Println("cart cleared")
	return nil
}

func (t *terminal) cmdPay(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: pay <cash|card|transfer|mixed> [cash-received] [card-amount] [transfer-amount]")
	}
	payment := checkout.Payment{Method: args[0]}
	if len(args) > 1 {
		payment.CashReceived = args[1]
	}
	if len(args) > 2 {
		payment.CardAmount = args[2]
	}
	if len(args) > 3 {
		payment.TransferAmount = args[3]
	}

	submission, err := t.builder.Build(t.cart, payment, checkout.BuildOptions{})
	if err != nil {
		return err
	}

	sale, err := t.sales.Create(ctx, submission.Input)
	if err != nil {
		return err
	}

	t.cart.Clear()
	if err := t.state.Delete(ctx, state.KeyCart); err != nil {
		t.logg.Error(ctx, "clearing persisted cart", err)
	}

	fmt.Printf("ticket %s  total %s  change %s\n",
		sale.TicketNumber, money.Format(submission.Total), money.Format(submission.Change))
	return nil
}

func (t *terminal) cmdOpenSession(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: open-session <opening-balance>")
	}
	if err := t.cash.Open(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("cash session open")
	return nil
}

func (t *terminal) cmdCloseSession(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: close-session <closing-balance> [master-password]")
	}
	input := api.CloseInput{ClosingBalance: args[0]}
	if len(args) > 1 {
		input.MasterPassword = &args[1]
	}
	closed, err := t.cash.Close(ctx, input)
	if err != nil {
		return err
	}
	fmt.Printf("session %d closed, expected %s counted %s",
		closed.SessionID,
		money.Format(money.Parse(closed.ExpectedCashInDrawer)),
		money.Format(money.Parse(closed.ActualCashInDrawer)))
	if closed.HasDiscrepancy {
		fmt.Printf("  DISCREPANCY %s", money.Format(money.Parse(closed.Discrepancy)))
	}
	fmt.Println()
	return nil
}

func (t *terminal) cmdMovement(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: movement <income|expense> <amount> [description...]")
	}
	kind := args[0]
	if kind != api.MovementIncome && kind != api.MovementExpense {
		return fmt.Errorf("movement kind must be income or expense")
	}
	return t.cash.Movement(ctx, kind, args[1], strings.Join(args[2:], " "))
}

func (t *terminal) cmdTicket(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: ticket <ticket-number>")
	}
	sale, err := t.sales.ByTicket(ctx, args[0])
	if err != nil {
		return err
	}
	printSale(sale)
	return nil
}

func (t *terminal) cmdRefund(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: refund <ticket-number> <master-password> <cash|card>")
	}
	sale, err := t.sales.Refund(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}
	fmt.Printf("ticket %s refunded\n", sale.TicketNumber)
	return nil
}

func (t *terminal) cmdCustomers(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: customers <query>")
	}
	found, err := t.customers.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	for _, c := range found {
		fmt.Printf("%4d  %-25s %-15s points %s\n", c.ID, c.Name, c.Phone, c.LoyaltyPoints)
	}
	return nil
}

func (t *terminal) cmdSummary(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: summary <start-date> <end-date>")
	}
	summary, err := t.reports.SalesSummary(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("sales %.2f over %d transactions, refunded %.2f, tax %.2f\n",
		summary.TotalSales, summary.TotalTransactions, summary.TotalRefunded, summary.TotalTax)
	for _, top := range summary.TopProducts {
		fmt.Printf("  %-30s sold %.0f revenue %.2f\n", top.Name, top.TotalSold, top.TotalRevenue)
	}
	return nil
}

func (t *terminal) cmdIPs(ctx context.Context, args []string) error {
	if len(args) == 0 {
		entries, err := t.admin.ListAllowedIPs(ctx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%-18s %s\n", e.IPAddress, e.Nickname)
		}
		return nil
	}
	switch args[0] {
	case "add":
		if len(args) != 3 {
			return fmt.Errorf("usage: ips add <address> <nickname>")
		}
		return t.admin.AddAllowedIP(ctx, args[1], args[2])
	case "add-me":
		if len(args) != 2 {
			return fmt.Errorf("usage: ips add-me <nickname>")
		}
		return t.admin.AddOwnIP(ctx, args[1])
	case "remove":
		if len(args) != 2 {
			return fmt.Errorf("usage: ips remove <address>")
		}
		return t.admin.RemoveAllowedIP(ctx, args[1])
	default:
		return fmt.Errorf("usage: ips [add|add-me|remove]")
	}
}

func printSale(sale api.Sale) {
	fmt.Printf("ticket %s  %s  %s\n", sale.TicketNumber, sale.PaymentMethod, sale.CreatedAt)
	for _, item := range sale.Items {
		fmt.Printf("  %-30s x%-6s %10s\n",
			item.ProductNameSnapshot, item.Quantity, money.Format(money.Parse(item.ItemSubtotal)))
	}
	fmt.Printf("  subtotal %s  tax %s  total %s\n",
		money.Format(money.Parse(sale.Subtotal)),
		money.Format(money.Parse(sale.TaxAmount)),
		money.Format(money.Parse(sale.TotalAmount)))
	if sale.IsRefunded {
		fmt.Println("  REFUNDED")
	}
}

func printError(err error) {
	if typed := pkgerrors.As(err); typed != nil {
		meta := pkgerrors.MetadataFor(typed.Code())
		fmt.Printf("error: %s (%s)\n", typed.Message(), meta.PublicMessage)
		return
	}
	fmt.Printf("error: %v\n", err)
}

func printHelp() {
	fmt.Print(`commands:
  login <user> <pass>       logout        whoami
  products                  add <id>      remove <id>
  qty <id> <n>              discount <id> <pct>
  authorize <master-pass>   cart          clear
  pay <method> [amounts...]
  open-session <balance>    close-session <balance> [master-pass]
  movement <kind> <amount> [desc]
  ticket <n>                refund <n> <master-pass> <method>
  customers <query>         summary <start> <end>
  ips [add|add-me|remove]   quit
`)
}
