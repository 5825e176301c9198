package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-rota/internal/config"
	"github.com/jakechorley/oncall-rota/pkg/metrics"
)

const pairsRequestYAML = `
year: 2025
month: 4
residents:
  - {name: Amy, rank: R3}
  - {name: Ben, rank: R3}
  - {name: Cat, rank: R4}
  - {name: Dan, rank: R4}
  - {name: Eve, rank: R5}
  - {name: Fay, rank: R5}
  - {name: Gus, rank: R6}
  - {name: Hal, rank: R6}
flapDays: [7]
seed: 42
`

func testApp() *AppContext {
	return &AppContext{
		Env:      "test",
		Cfg:      &config.Config{MaxAttempts: 200, Workers: 1},
		Recorder: metrics.Nop{},
		Logger:   zap.NewNop(),
		Ctx:      context.Background(),
	}
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateScheduleCmd_DryRunWritesCalendar(t *testing.T) {
	requestFile := writeTemp(t, "request.yaml", pairsRequestYAML)
	calendarFile := filepath.Join(t.TempDir(), "calendar.json")

	out, err := run(t, GenerateScheduleCmd(testApp()), requestFile, "--dry-run", "--seed", "9", "-o", calendarFile)
	require.NoError(t, err)

	assert.Contains(t, out, "Schedule generated for April 2025")
	assert.Contains(t, out, "Strict pairs")
	assert.Contains(t, out, "Seed: 9")
	assert.Contains(t, out, "DRY RUN")
	assert.FileExists(t, calendarFile)

	// The written calendar feeds recomputeStats
	out, err = run(t, RecomputeStatsCmd(testApp()), requestFile, calendarFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Stats for April 2025")
	assert.Contains(t, out, "All scheduling rules satisfied")
}

func TestGenerateScheduleCmd_MissingFile(t *testing.T) {
	_, err := run(t, GenerateScheduleCmd(testApp()), "/nonexistent.yaml", "--dry-run")
	assert.ErrorContains(t, err, "failed to read request file")
}

func TestRecomputeStatsCmd_ReportsManualBreakage(t *testing.T) {
	requestFile := writeTemp(t, "request.yaml", `
year: 2025
month: 2
residents:
  - {name: Amy, rank: R3}
  - {name: Eve, rank: R5}
`)

	// Eve every day is a consecutive-days violation from day 2 on
	var days []string
	for d := 1; d <= 28; d++ {
		days = append(days, `{"day": `+strconv.Itoa(d)+`, "coverage": "single", "line2": "Eve"}`)
	}
	calendarFile := writeTemp(t, "calendar.json", "["+strings.Join(days, ",")+"]")

	out, err := run(t, RecomputeStatsCmd(testApp()), requestFile, calendarFile)
	require.NoError(t, err)
	assert.Contains(t, out, "NoConsecutiveDays")
	assert.Contains(t, out, "Eve")
}

func TestInteractive(t *testing.T) {
	var ran []string
	root := &cobra.Command{Use: "oncall"}
	echo := &cobra.Command{
		Use:  "echo <word>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loud, _ := cmd.Flags().GetBool("loud")
			word := args[0]
			if loud {
				word = strings.ToUpper(word)
			}
			ran = append(ran, word)
			return nil
		},
	}
	echo.Flags().Bool("loud", false, "")
	interactive := InteractiveCmd()
	root.AddCommand(echo, interactive)

	var out bytes.Buffer
	in := strings.NewReader("help\necho --loud hi\necho there\necho\nbogus\nquit\necho never\n")
	require.NoError(t, runInteractive(interactive, in, &out))

	assert.Equal(t, []string{"HI", "there"}, ran, "Flags are reset between commands")
	assert.Contains(t, out.String(), "Available commands")
	assert.Contains(t, out.String(), "Unknown command: bogus")
	assert.Contains(t, out.String(), "accepts 1 arg(s)")
	assert.Contains(t, out.String(), "Goodbye!")
}
