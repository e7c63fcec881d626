package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/SAP-F-2025/ec0249-assessment/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CATALOG_PATH", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "ec0249 (devel)\n", out)
}

func TestCatalogList(t *testing.T) {
	out, err := run(t, "catalog", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "module1_assessment")
	assert.Contains(t, out, "final_certification")

	out, err = run(t, "catalog", "list", "--element", "E0877")
	require.NoError(t, err)
	assert.Contains(t, out, "module4_assessment")
	assert.NotContains(t, out, "module1_assessment")
}

func TestCatalogValidate(t *testing.T) {
	out, err := run(t, "catalog", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "5 assessments")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"version": "x", "assessments": []}`), 0o600))
	_, err = run(t, "catalog", "validate", bad)
	assert.Error(t, err)
}

func TestScore(t *testing.T) {
	answers := filepath.Join(t.TempDir(), "answers.json")
	require.NoError(t, os.WriteFile(answers, []byte(`{"m4_q1": 0, "m4_q2": true}`), 0o600))

	out, err := run(t, "score", "module4_assessment", answers)
	require.NoError(t, err)

	var score models.ScoreResult
	require.NoError(t, json.Unmarshal([]byte(out), &score), out)
	assert.Equal(t, models.ScoringStandard, score.Method)
	assert.Equal(t, 20.0, score.EarnedPoints)
	assert.Equal(t, 50, score.Percentage)

	out, err = run(t, "score", "module4_assessment", answers, "--method", "weighted")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &score), out)
	assert.Equal(t, models.ScoringWeighted, score.Method)

	require.NoError(t, os.WriteFile(answers, []byte(`{"zz": 1}`), 0o600))
	_, err = run(t, "score", "module4_assessment", answers)
	assert.ErrorContains(t, err, `question "zz"`)
}

func TestSend_RejectsInvalidCommands(t *testing.T) {
	file := filepath.Join(t.TempDir(), "command.json")

	require.NoError(t, os.WriteFile(file, []byte(`{"type":"pause","user_id":"ana"}`), 0o600))
	_, err := run(t, "send", file)
	assert.ErrorContains(t, err, "unknown command")

	require.NoError(t, os.WriteFile(file, []byte(`{"type":"start","assessment_id":"module1_assessment"}`), 0o600))
	_, err = run(t, "send", file)
	assert.ErrorContains(t, err, "without user_id")
}

func TestSend_RequiresKafka(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EVENTS_ENABLED", "true")
	t.Setenv("EVENTS_PUBLISHER", "gochannel")

	rootCmd.SetIn(bytes.NewBufferString(`{"type":"complete","user_id":"ana","session_id":"s1"}`))
	t.Cleanup(func() { rootCmd.SetIn(nil) })

	_, err := run(t, "send", "-")
	assert.ErrorContains(t, err, "EVENTS_PUBLISHER=kafka")
}
