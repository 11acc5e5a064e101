package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/casualjim/strix/pkg/jsonx"
	"github.com/casualjim/strix/tool"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the tools the assistant can call",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printer := pp.New()
		printer.SetOutput(cmd.OutOrStdout())
		for _, def := range demoTools() {
			name, schema := def.ToNameAndSchema()
			params, err := jsonx.ToObject(schema)
			if err != nil {
				return fmt.Errorf("render schema of %s: %w", name, err)
			}
			if _, err := printer.Println(map[string]any{
				"name":        name,
				"description": def.Description,
				"parameters":  params,
			}); err != nil {
				return err
			}
		}
		return nil
	},
}

var cityWeather = map[string]string{
	"amsterdam": "light rain, 12°C",
	"london":    "overcast, 14°C",
	"paris":     "sunny, 21°C",
	"tokyo":     "humid, 27°C",
}

func currentTime(timezone string) (string, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return "", fmt.Errorf("unknown timezone %q", timezone)
	}
	return time.Now().In(loc).Format(time.RFC1123), nil
}

func lookup(city string) string {
	if weather, ok := cityWeather[strings.ToLower(strings.TrimSpace(city))]; ok {
		return weather
	}
	return "no weather report for " + city
}

func demoTools() []tool.Definition {
	return []tool.Definition{
		tool.Must(currentTime,
			tool.Name("current_time"),
			tool.Description("Returns the current time in a timezone."),
			tool.Parameters("timezone"),
			tool.Default("timezone", "UTC"),
			tool.Describe("timezone", "IANA timezone name, for example Europe/Paris"),
		),
		tool.Must(lookup,
			tool.Name("lookup"),
			tool.Description("Looks up the weather report of a city."),
			tool.Parameters("city"),
		),
	}
}
