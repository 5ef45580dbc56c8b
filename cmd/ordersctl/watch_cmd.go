package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jrsteele09/go-orders-client/notice"
	"github.com/jrsteele09/go-orders-client/realtime"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Print order notifications as they arrive, until interrupted",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Usage: "Also print events hidden from the current user"},
		},
		Action: withApp(watch),
	}
}

// watch prints notifications until interrupted. It fails when the realtime
// client gives up reconnecting.
func watch(c *cli.Context, a *app) error {
	current, ok := a.store.Session()
	if !ok {
		return cli.Exit("Nenhuma sessão ativa. Faça login primeiro.", 1)
	}
	viewer := realtime.ViewerOf(current)

	show := func(event realtime.Event, toast realtime.Toast) {
		fmt.Fprintf(a.out, "%s %s\n", event.Timestamp, toast)
	}
	if c.Bool("all") {
		a.realtime.OnEvent(realtime.AnyEvent, func(event realtime.Event) {
			show(event, realtime.Describe(event))
		})
	} else {
		a.display = show
	}

	fatal := make(chan notice.Notice, 1)
	unsubscribe := a.notices.Subscribe(func(n notice.Notice) {
		if n.Kind != notice.RealtimeFatal {
			return
		}
		select {
		case fatal <- n:
		default:
		}
	})
	defer unsubscribe()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.realtime.Connect(ctx); err != nil {
			return failure(err)
		}
		log.Info().Str("sector", viewer.Sector).Str("role", string(viewer.Role)).Msg("Watching for notifications")
		return nil
	})
	g.Go(func() error {
		defer a.realtime.Disconnect()
		select {
		case <-ctx.Done():
			return nil
		case n := <-fatal:
			return cli.Exit(n.Message, 1)
		}
	})
	return g.Wait()
}
