// Copyright 2026 The go-pbstx Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// ecud runs a simulated engine-control unit speaking PBStx on one or
// two serial ports. With both --uart and --usb given, the USB CDC port
// is preferred while connected and the link falls back to the UART.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	pbstx "github.com/miniecu/go-pbstx"
	"github.com/miniecu/go-pbstx/comm"
	"github.com/miniecu/go-pbstx/internal/ecusim"
	"github.com/miniecu/go-pbstx/transport/uart"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "ecud",
		Short: "PBStx engine-control daemon (simulated engine)",
		Long: `ecud attaches a simulated engine-control unit to one or two serial
ports and serves the PBStx protocol: periodic status telemetry plus
command, parameter, time synchronization and memory dump requests.

Every flag can also be set through an ECUD_* environment variable or a
config file given with --config (e.g. ECUD_ENGINE_ID, ECUD_UART).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("read config: %w", err)
				}
			}
			return run(cmd.Context(), v)
		},
	}

	fl := cmd.Flags()
	fl.String("config", "", "config file (yaml/toml/json)")
	fl.String("uart", "", "dedicated UART port device")
	fl.String("usb", "", "USB CDC-ACM port device (preferred while connected)")
	fl.Int("baud", 115200, "UART baud rate")
	fl.Uint32("engine-id", 1, "engine id reported in every message (0 is broadcast, not allowed)")
	fl.Duration("status-period", comm.DefaultStatusPeriod, "interval between Status messages")
	fl.Bool("enable-memdump", false, "serve memory dump requests")
	fl.Bool("adc-raw", false, "include raw ADC readings in Status")
	fl.Bool("failover", false, "run one session preferring --usb and falling back to --uart")
	fl.Bool("debug", false, "verbose logging")

	_ = v.BindPFlags(fl)
	v.SetEnvPrefix("ecud")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return cmd
}

func run(ctx context.Context, v *viper.Viper) error {
	logger, err := newLogger(v.GetBool("debug"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	engineID := v.GetUint32("engine-id")
	if engineID == 0 {
		return fmt.Errorf("engine id 0 is reserved for broadcast")
	}

	uartPort := v.GetString("uart")
	usbPort := v.GetString("usb")
	if uartPort == "" && usbPort == "" {
		return fmt.Errorf("at least one of --uart or --usb is required")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := ecusim.NewEngine()
	hub := comm.NewHub(
		comm.Config{
			EngineID:      engineID,
			StatusPeriod:  v.GetDuration("status-period"),
			DebugADCRaw:   v.GetBool("adc-raw"),
			EnableMemdump: v.GetBool("enable-memdump"),
		},
		comm.Collaborators{
			Params:   ecusim.NewParamTable(ecusim.DefaultParams()),
			Commands: engine,
			Clock:    ecusim.NewClock(),
			Sensors:  engine,
			Memory:   ecusim.NewMemory(64*1024, 256*1024),
		},
		comm.WithLogger(logger),
		comm.WithAlert(pbstx.NewAlert(func(level pbstx.AlertLevel) {
			if level == pbstx.AlertFailed {
				logger.Warn("comm alert raised")
			} else {
				logger.Info("comm alert cleared")
			}
		})),
	)

	if v.GetBool("failover") && (uartPort == "" || usbPort == "") {
		return fmt.Errorf("--failover needs both --uart and --usb")
	}

	links, closeAll, err := openLinks(uartPort, usbPort, v.GetInt("baud"), v.GetBool("failover"), hub.Alert(), logger)
	if err != nil {
		return err
	}
	defer closeAll()

	g, ctx := errgroup.WithContext(ctx)
	for _, link := range links {
		link := link
		g.Go(func() error { return hub.Run(ctx, link) })
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// openLinks opens the configured serial ports and builds the session
// links. Each port normally gets its own dedicated session; in
// failover mode both ports feed a single session that prefers the USB
// CDC channel while it is connected. A port is never shared between
// two sessions, so inbound bytes have exactly one reader.
func openLinks(uartPort, usbPort string, baud int, failover bool, alert *pbstx.Alert, logger *zap.Logger) ([]*pbstx.Link, func(), error) {
	var channels []*uart.Channel
	closeAll := func() {
		for _, ch := range channels {
			_ = ch.Close()
		}
	}

	open := func(port string, opts ...uart.Option) (*uart.Channel, error) {
		ch, err := uart.Open(port, opts...)
		if err != nil {
			closeAll()
			return nil, err
		}
		logger.Info("serial port opened", zap.String("port", port))
		channels = append(channels, ch)
		return ch, nil
	}

	timeouts := pbstx.WithTimeouts(pbstx.DefaultByteTimeout, pbstx.DefaultPayloadTimeout)

	var links []*pbstx.Link

	if failover {
		usb, err := open(usbPort)
		if err != nil {
			return nil, nil, err
		}
		ua, err := open(uartPort, uart.WithBaudRate(baud))
		if err != nil {
			return nil, nil, err
		}
		return []*pbstx.Link{
			pbstx.NewFailoverLink(usb, ua, pbstx.WithAlert(alert), timeouts),
		}, closeAll, nil
	}

	if usbPort != "" {
		usb, err := open(usbPort)
		if err != nil {
			return nil, nil, err
		}
		links = append(links, pbstx.NewLink(usb, pbstx.WithAlert(alert), timeouts))
	}
	if uartPort != "" {
		ua, err := open(uartPort, uart.WithBaudRate(baud))
		if err != nil {
			return nil, nil, err
		}
		links = append(links, pbstx.NewLink(ua, pbstx.WithAlert(alert), timeouts))
	}
	return links, closeAll, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
