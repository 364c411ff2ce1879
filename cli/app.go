// Package cli contains the softi2c command line tool.
package cli

import (
	"github.com/urfave/cli/v2"

	"go.viam.com/softi2c/logging"
)

const (
	flagConfig = "config"
	flagDebug  = "debug"
	flagSim    = "sim"
	flagPeriph = "periph-number"
	flagRow    = "row"
	flagCol    = "col"
)

// NewApp returns the softi2c command line app.
func NewApp() *cli.App {
	return newApp(nil)
}

// newApp builds the app. A non-nil logger replaces the one built from the config.
func newApp(logger logging.Logger) *cli.App {
	st := &state{logger: logger}
	return &cli.App{
		Name:            "softi2c",
		Usage:           "drive a bit-banged I2C bus",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.BoolFlag{
				Name:  flagSim,
				Usage: "run against a simulated bus with an RTC, a display and an echo device",
			},
			&cli.IntFlag{
				Name:  flagPeriph,
				Value: -1,
				Usage: "also register the bus with periph under `NUMBER`",
			},
		},
		Before: st.before,
		After:  st.after,
		Commands: []*cli.Command{
			{
				Name:   "scan",
				Usage:  "list the addresses that acknowledge",
				Action: st.scanAction,
			},
			{
				Name:      "read",
				Usage:     "read registers of a device",
				ArgsUsage: "<address> <register> [count]",
				Action:    st.readAction,
			},
			{
				Name:      "write",
				Usage:     "write bytes to a device in one transaction",
				ArgsUsage: "<address> <byte>...",
				Action:    st.writeAction,
			},
			{
				Name:      "dump",
				Usage:     "read a device's registers through the periph bus registry",
				ArgsUsage: "<address> [count]",
				Action:    st.dumpAction,
			},
			{
				Name:      "set-bits",
				Usage:     "set the bits of a mask in a register",
				ArgsUsage: "<address> <register> <mask>",
				Action:    st.setBitsAction,
			},
			{
				Name:      "clear-bits",
				Usage:     "clear the bits of a mask in a register",
				ArgsUsage: "<address> <register> <mask>",
				Action:    st.clearBitsAction,
			},
			{
				Name:      "masked-set",
				Usage:     "replace the bits of a mask in a register",
				ArgsUsage: "<address> <register> <mask> <bits>",
				Action:    st.maskedSetAction,
			},
			{
				Name:   "stats",
				Usage:  "scan the bus and print its counters",
				Action: st.statsAction,
			},
			{
				Name:            "rtc",
				Usage:           "work with the RTC-8564 real time clock",
				HideHelpCommand: true,
				Subcommands: []*cli.Command{
					{
						Name:   "now",
						Usage:  "print the time of the clock",
						Action: st.rtcNowAction,
					},
					{
						Name:      "set",
						Usage:     "set the clock, to the system time when no time is given",
						ArgsUsage: "[RFC3339 time]",
						Action:    st.rtcSetAction,
					},
					{
						Name:   "init",
						Usage:  "reset every register and start the clock",
						Action: st.rtcInitAction,
					},
				},
			},
			{
				Name:            "lcd",
				Usage:           "work with the ST7032i character display",
				HideHelpCommand: true,
				Subcommands: []*cli.Command{
					{
						Name:   "init",
						Usage:  "run the power up sequence",
						Action: st.lcdInitAction,
					},
					{
						Name:      "print",
						Usage:     "print text at a position",
						ArgsUsage: "<text>",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: flagRow, Usage: "row to print on"},
							&cli.IntFlag{Name: flagCol, Usage: "column to start at"},
						},
						Action: st.lcdPrintAction,
					},
					{
						Name:   "clear",
						Usage:  "clear the display",
						Action: st.lcdClearAction,
					},
					{
						Name:      "contrast",
						Usage:     "set the contrast, 0 through 63",
						ArgsUsage: "<contrast>",
						Action:    st.lcdContrastAction,
					},
				},
			},
			{
				Name:   "schema",
				Usage:  "print the JSON schema of the config file and of every line model",
				Action: st.schemaAction,
			},
		},
	}
}
