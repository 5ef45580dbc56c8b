package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/jrsteele09/go-orders-client/internal/utils"
	"github.com/jrsteele09/go-orders-client/orders"
	"github.com/jrsteele09/go-orders-client/validation"
	"github.com/urfave/cli/v2"
)

func ordersCmd() *cli.Command {
	return &cli.Command{
		Name:  "orders",
		Usage: "List and change orders",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List the orders visible to the current user",
				Action: withApp(listOrders),
			},
			{
				Name:      "get",
				Usage:     "Show one order",
				ArgsUsage: "<id>",
				Action:    withApp(getOrder),
			},
			{
				Name:      "history",
				Usage:     "Show the change history of an order",
				ArgsUsage: "<id>",
				Action:    withApp(orderHistory),
			},
			{
				Name:  "create",
				Usage: "Submit a new order",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Required: true},
					&cli.Float64Flag{Name: "quantity", Aliases: []string{"q"}, Required: true},
					&cli.StringFlag{Name: "delivery-date", Usage: "AAAA-MM-DD", Required: true},
					&cli.StringFlag{Name: "sender", Required: true},
					&cli.StringFlag{Name: "notes"},
					&cli.BoolFlag{Name: "urgent"},
				},
				Action: withApp(createOrder),
			},
			{
				Name:      "update",
				Usage:     "Change an order",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status"},
					&cli.Float64Flag{Name: "quantity"},
					&cli.StringFlag{Name: "notes"},
					&cli.StringFlag{Name: "delivery-date", Usage: "AAAA-MM-DD"},
					&cli.BoolFlag{Name: "urgent"},
					&cli.BoolFlag{Name: "with-history", Usage: "Record the change in the order history"},
				},
				Action: withApp(updateOrder),
			},
			{
				Name:  "reset",
				Usage: "Refresh the security token and check the order service",
				Action: withApp(func(c *cli.Context, a *app) error {
					if !a.orders.Reset(c.Context) {
						return cli.Exit("Falha ao reiniciar o serviço de pedidos.", 1)
					}
					fmt.Fprintln(a.out, "Serviço de pedidos reiniciado.")
					return nil
				}),
			},
		},
	}
}

func listOrders(c *cli.Context, a *app) error {
	list, err := a.orders.List(c.Context)
	if err != nil {
		return failure(err)
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tQTD\tENTREGA\tSETOR\tDESCRIÇÃO")
	for _, order := range list {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
			order.ID, order.Status, order.Quantity, validation.FormatDate(order.DeliveryDate), order.Sector, order.Description)
	}
	return w.Flush()
}

func getOrder(c *cli.Context, a *app) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	order, err := a.orders.Get(c.Context, id)
	if err != nil {
		return failure(err)
	}
	return printJSON(a, order)
}

func orderHistory(c *cli.Context, a *app) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	entries, err := a.orders.History(c.Context, id)
	if err != nil {
		return failure(err)
	}
	return printJSON(a, entries)
}

func createOrder(c *cli.Context, a *app) error {
	input := orders.OrderInput{
		Description:  c.String("description"),
		Quantity:     utils.Ptr(c.Float64("quantity")),
		Urgent:       utils.Ptr(c.Bool("urgent")),
		DeliveryDate: c.String("delivery-date"),
		Sender:       c.String("sender"),
	}
	if c.IsSet("notes") {
		input.Notes = utils.Ptr(c.String("notes"))
	}
	created, err := a.orders.Create(c.Context, input)
	if err != nil {
		return failure(err)
	}
	fmt.Fprintf(a.out, "Pedido #%d criado.\n", created.ID)
	return nil
}

func updateOrder(c *cli.Context, a *app) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	var input orders.OrderInput
	if c.IsSet("status") {
		input.Status = utils.Ptr(c.String("status"))
	}
	if c.IsSet("quantity") {
		input.Quantity = utils.Ptr(c.Float64("quantity"))
	}
	if c.IsSet("notes") {
		input.Notes = utils.Ptr(c.String("notes"))
	}
	if c.IsSet("urgent") {
		input.Urgent = utils.Ptr(c.Bool("urgent"))
	}
	input.DeliveryDate = c.String("delivery-date")

	update := a.orders.Update
	if c.Bool("with-history") {
		update = a.orders.UpdateWithHistory
	}
	message, err := update(c.Context, id, input)
	if err != nil {
		return failure(err)
	}
	if message == "" {
		message = fmt.Sprintf("Pedido #%d atualizado.", id)
	}
	fmt.Fprintln(a.out, message)
	return nil
}

func orderID(c *cli.Context) (int, error) {
	id, err := strconv.Atoi(c.Args().First())
	if err != nil || id <= 0 {
		return 0, cli.Exit("Informe o ID do pedido.", 1)
	}
	return id, nil
}

func printJSON(a *app, v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
