package analytics

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/scout-pos/geo-analytics/internal/model"
)

var groupedPrinter = message.NewPrinter(language.English)

// FormatValue renders a metric value for display. Sales become a peso figure
// in millions with one decimal; counts get grouped digits. Downstream UI
// shows these strings verbatim.
func FormatValue(metric model.Metric, value float64) string {
	if metric == model.MetricSales {
		return fmt.Sprintf("₱%.1fM", value/1_000_000)
	}
	return groupedPrinter.Sprintf("%d", int64(value))
}
