// Command tactilesim attaches tactile contact sensors from a CSV table to a
// stage and shows their readings.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const (
	flagConfig  = "config"
	flagSensors = "sensors"
	flagStage   = "stage"
	flagHz      = "hz"
	flagWatch   = "watch"
	flagROS     = "ros"
	flagDebug   = "debug"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "tactilesim",
		Usage: "import tactile sensors onto a stage and stream their readings",
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "import the sensor table and display readings until interrupted",
				ArgsUsage: "[ROS remapping arguments]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "settings file (JSON)",
					},
					&cli.StringFlag{
						Name:  flagSensors,
						Usage: "sensor table (CSV), overrides sensor_file",
					},
					&cli.StringFlag{
						Name:  flagStage,
						Usage: "stage description (JSON), overrides stage_file",
					},
					&cli.Float64Flag{
						Name:  flagHz,
						Usage: "physics steps per second, overrides physics_hz",
					},
					&cli.BoolFlag{
						Name:  flagWatch,
						Usage: "re-import the sensor table when it changes",
					},
					&cli.BoolFlag{
						Name:  flagROS,
						Usage: "publish readings as ROS topics",
					},
					&cli.BoolFlag{
						Name:  flagDebug,
						Usage: "log at debug level",
					},
				},
				Action: runAction,
			},
			{
				Name:      "check",
				Usage:     "parse a sensor table and print it",
				ArgsUsage: "<sensors.csv>",
				Action:    checkAction,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
