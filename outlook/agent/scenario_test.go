package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
)

const sendAndList = `name: send-and-list
account: work
segments: [mail]
prompts:
  - Send an email to me@example.com with subject "hello"
  - List the inbox
assertions:
  - The inbox contains a message with subject "hello"
`

func TestLoadScenarios(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	base := "mem://localhost/scenarios"
	require.NoError(t, fs.Upload(ctx, base+"/b_send.yaml", 0o644, strings.NewReader(sendAndList)))
	require.NoError(t, fs.Upload(ctx, base+"/a_rooms.yml", 0o644, strings.NewReader("name: rooms\nprompts: [List rooms]\n")))
	require.NoError(t, fs.Upload(ctx, base+"/notes.txt", 0o644, strings.NewReader("ignored")))

	scenario, err := LoadScenario(ctx, fs, base+"/b_send.yaml")
	require.NoError(t, err)
	assert.Equal(t, &Scenario{
		Name:       "send-and-list",
		Account:    "work",
		Segments:   []string{"mail"},
		Prompts:    []string{`Send an email to me@example.com with subject "hello"`, "List the inbox"},
		Assertions: []string{`The inbox contains a message with subject "hello"`},
	}, scenario)

	all, err := LoadScenarios(ctx, fs, base)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "rooms", all[0].Name)
	assert.Equal(t, "send-and-list", all[1].Name)

	single, err := LoadScenarios(ctx, fs, base+"/a_rooms.yml")
	require.NoError(t, err)
	assert.Len(t, single, 1)

	_, err = LoadScenario(ctx, fs, base+"/missing.yaml")
	assert.Error(t, err)
}

func TestParseScenarioValidation(t *testing.T) {
	_, err := ParseScenario([]byte("prompts: [x]"))
	assert.Error(t, err)
	_, err = ParseScenario([]byte("name: empty"))
	assert.Error(t, err)
	_, err = ParseScenario([]byte("name: [unterminated"))
	assert.Error(t, err)
}
