package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-gate/internal/grpc/gatev1"
)

const quarantinePolicy = `
name: quarantine-on-alerts
decision_tree:
  - if: {any_alerts: true}
    then: quarantine
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestEvaluateNoAlertsFallsBackToReview(t *testing.T) {
	dir := t.TempDir()
	policyPath := writeFile(t, dir, "policy.yaml", quarantinePolicy)
	reportPath := writeFile(t, dir, "report.json", `{"alerts": []}`)
	unitsPath := writeFile(t, dir, "units.yaml", "- name: arima\n- name: prophet\n  kind: parallel\n")

	var out bytes.Buffer
	require.NoError(t, evaluate(context.Background(), &out, policyPath, reportPath, unitsPath, false))

	var decision map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decision))
	assert.Equal(t, "review", decision["action"])
	assert.Equal(t, false, decision["allowed"])

	chain := decision["chain"].(map[string]any)
	for _, unit := range chain["units"].([]any) {
		assert.Equal(t, "review", unit.(map[string]any)["reason"])
	}
}

func TestEvaluateFailOnBlock(t *testing.T) {
	dir := t.TempDir()
	policyPath := writeFile(t, dir, "policy.yaml", quarantinePolicy)
	reportPath := writeFile(t, dir, "report.json", `{"alerts": ["latency"]}`)

	var out bytes.Buffer
	err := evaluate(context.Background(), &out, policyPath, reportPath, "", true)
	assert.True(t, errors.Is(err, errBlocked))
	assert.Contains(t, out.String(), `"action": "quarantine"`)
}

func TestEvaluateNullStatusIsNotReady(t *testing.T) {
	dir := t.TempDir()
	policyPath := writeFile(t, dir, "policy.yaml", "name: ship\ndecision_tree:\n  - if: {all_clear: true}\n    then: auto_deploy\n")
	reportPath := writeFile(t, dir, "report.json", `{"alerts": []}`)
	unitsPath := writeFile(t, dir, "units.yaml", "- name: arima\n  status: null\n- name: prophet\n  kind: ~\n")

	var out bytes.Buffer
	require.NoError(t, evaluate(context.Background(), &out, policyPath, reportPath, unitsPath, false))

	var decision map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decision))
	assert.Equal(t, "auto_deploy", decision["action"])

	chain := decision["chain"].(map[string]any)
	units := chain["units"].([]any)
	require.Len(t, units, 2)
	assert.Equal(t, "serial-block", units[0].(map[string]any)["reason"])
	// A null kind is not serial, so the blocked serial unit does not hold it back.
	assert.Equal(t, true, units[1].(map[string]any)["allowed"])
}

func TestEvaluateMissingPolicy(t *testing.T) {
	err := evaluate(context.Background(), &bytes.Buffer{}, filepath.Join(t.TempDir(), "nope.yaml"), "", "", false)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	clean := writeFile(t, dir, "clean.yaml", quarantinePolicy)
	var out bytes.Buffer
	require.NoError(t, validate(&out, clean))
	assert.Contains(t, out.String(), "no issues")

	broken := writeFile(t, dir, "broken.yaml", `
decision_tree:
  - if: {}
    then: review
  - if: {all_clear: true}
    then: ship_it
`)
	out.Reset()
	err := validate(&out, broken)
	require.Error(t, err)
	assert.Contains(t, out.String(), "unreachable")
	assert.Contains(t, out.String(), "ship_it")
}

func TestPrintActions(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printActions(&out))
	assert.Contains(t, out.String(), "Auto-Deploy")
	assert.Contains(t, out.String(), "auto_rollback")
}

type lastDecisionClient struct {
	gatev1.GateEngineClient
	got *structpb.Struct
}

func (c *lastDecisionClient) GetLastDecision(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	c.got = in
	return structpb.NewStruct(map[string]any{"id": "d1", "action": "auto_deploy"})
}

func TestFetchLast(t *testing.T) {
	client := &lastDecisionClient{}
	var out bytes.Buffer
	require.NoError(t, fetchLast(context.Background(), &out, client, "tenant", "forecast"))

	assert.Equal(t, "forecast", client.got.AsMap()["pipeline_id"])
	assert.Contains(t, out.String(), `"id": "d1"`)
}
