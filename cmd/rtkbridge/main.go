// Command rtkbridge mediates between a GNSS receiver on a serial port and
// an NTRIP caster, streaming RTCM corrections down and GGA keep-alives up.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/bramburn/rtkbridge/pkg/rtkbridge/mediator"
	"github.com/bramburn/rtkbridge/pkg/rtkbridge/nmea"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file; flags below override its values when set")
	serialPort := flag.String("serial-port", "", "GNSS receiver serial port (e.g. /dev/ttyUSB0, COM3)")
	baudRate := flag.Int("baud", 0, "serial baud rate (0 keeps the config/default)")
	ntripHost := flag.String("ntrip-host", "", "NTRIP caster host")
	ntripPort := flag.Int("ntrip-port", 0, "NTRIP caster port (0 keeps the config/default)")
	mountpoint := flag.String("mountpoint", "", "NTRIP mountpoint")
	username := flag.String("user", "", "NTRIP username")
	password := flag.String("password", "", "NTRIP password")
	mock := flag.Bool("mock", false, "use the synthetic NTRIP sender instead of a real caster")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg := mediator.DefaultConfig()
	if *configPath != "" {
		loaded, err := mediator.LoadConfig(*configPath)
		if err != nil {
			logger.WithError(err).Fatal("rtkbridge: loading config")
		}
		cfg = loaded
	}

	if *serialPort != "" {
		cfg.SerialPort = *serialPort
	}
	if *baudRate != 0 {
		cfg.SerialBaudRate = *baudRate
	}
	if *ntripHost != "" {
		cfg.NTRIPHost = *ntripHost
	}
	if *ntripPort != 0 {
		cfg.NTRIPPort = *ntripPort
	}
	if *mountpoint != "" {
		cfg.NTRIPMount = *mountpoint
	}
	if *username != "" {
		cfg.NTRIPUsername = *username
	}
	if *password != "" {
		cfg.NTRIPPassword = *password
	}
	if *mock {
		cfg.NTRIPMock = true
	}

	sink := mediator.SinkFunc(func(fix nmea.Fix) {
		logger.WithFields(logrus.Fields{
			"kind":      fix.Kind,
			"quality":   fix.Quality.String(),
			"latitude":  fix.Latitude,
			"longitude": fix.Longitude,
		}).Info("rtkbridge: fix")
	})

	m := mediator.New(cfg, sink, logger)
	if err := m.Start(); err != nil {
		logger.WithError(err).Fatal("rtkbridge: start failed")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Fprintln(os.Stderr, "rtkbridge: shutting down")
	if err := m.Stop(); err != nil {
		logger.WithError(err).Warn("rtkbridge: stop reported an error")
	}
}
