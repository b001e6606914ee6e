package cli

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/rahul/taskbreak/internal/gateway"
	"github.com/rahul/taskbreak/internal/observability"
)

func newServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the enabled chat gateways with the live status dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), app)
		},
	}
}

func runServe(ctx context.Context, app *App) error {
	rt, err := bootstrap(ctx, app)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	d := rt.dispatcher()

	var gateways []gateway.Messenger
	if gw, ok := rt.cfg.GetGatewayConfig("telegram"); ok {
		tg, err := gateway.NewTelegramGateway(ctx, gw.Token, d)
		if err != nil {
			return err
		}
		gateways = append(gateways, tg)
	}
	if gw, ok := rt.cfg.GetGatewayConfig("discord"); ok {
		dg, err := gateway.NewDiscordGateway(ctx, gw.Token, d)
		if err != nil {
			return err
		}
		gateways = append(gateways, dg)
	}
	if len(gateways) == 0 {
		return errors.New("no gateway is enabled; configure gateways.telegram or gateways.discord, or use the console command")
	}

	observability.PrintBanner()
	observability.InitializeTerminal()
	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())
	rt.logger.SetOutput(observability.NewTermWriter())
	defer observability.CleanupTerminal()

	if ttl := rt.cfg.App.SessionTTLMinutes; ttl > 0 {
		go d.RunSweeper(ctx, time.Duration(ttl)*time.Minute, time.Minute)
	}

	// Live dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
				rt.logger.LogHeartbeat()
			}
		}
	}()

	for _, gw := range gateways {
		go func() {
			if err := gw.Start(); err != nil {
				log.Printf("\033[91m[ FAIL ] GATEWAY CRITICAL ERROR: %v\033[0m", err)
				stop()
			}
		}()
	}

	<-ctx.Done()

	for _, gw := range gateways {
		if err := gw.Stop(); err != nil {
			log.Printf("failed to stop gateway: %v", err)
		}
	}
	d.Wait()

	log.Println("\033[95m[ EXIT ] GATEWAYS STOPPED. GOODBYE.\033[0m")
	return nil
}
