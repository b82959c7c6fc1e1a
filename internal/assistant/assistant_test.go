package assistant

import (
	"fmt"
	"strings"
	"testing"

	"github.com/voltwise/prepaid-meter-service/internal/usage"
)

func TestSystemPrompt_IncludesSummary(t *testing.T) {
	summary := usage.Summary{
		AverageUsage:         12.5,
		PeakUsageDay:         usage.PeakDay{Date: "2025-03-02", Usage: 38},
		TotalTokensPurchased: 150,
		DailyUsage: []usage.DailyUsage{
			{Date: "2025-03-01", Total: 20},
			{Date: "2025-03-02", Total: 38},
		},
	}

	prompt := systemPrompt(summary)

	for _, want := range []string{"12.50", "2025-03-02", "38.00", "150.00", "2025-03-01"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q\nprompt: %s", want, prompt)
		}
	}
}

func TestSystemPrompt_NoPeakDay(t *testing.T) {
	prompt := systemPrompt(usage.Summary{})

	if strings.Contains(prompt, "Peak usage day") {
		t.Error("Expected no peak day line when no day qualifies")
	}
}

func TestSystemPrompt_TruncatesHistory(t *testing.T) {
	summary := usage.Summary{}
	for i := 1; i <= 31; i++ {
		summary.DailyUsage = append(summary.DailyUsage, usage.DailyUsage{
			Date:  fmt.Sprintf("2025-03-%02d", i),
			Total: float64(i),
		})
	}

	prompt := systemPrompt(summary)

	if strings.Contains(prompt, "2025-03-01:") {
		t.Error("Expected old days to be truncated from the prompt")
	}
	if !strings.Contains(prompt, "2025-03-31") {
		t.Error("Expected the most recent day in the prompt")
	}
}
