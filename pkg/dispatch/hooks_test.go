package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/deployworks/deployctl/pkg/expr"
	"github.com/deployworks/deployctl/pkg/target"
	"github.com/deployworks/deployctl/pkg/values"
)

func staticValues(pairs map[string]string) func() []values.Provider {
	return func() []values.Provider {
		providers := make([]values.Provider, 0, len(pairs))
		for k, v := range pairs {
			providers = append(providers, values.Static(k, v))
		}
		return providers
	}
}

func TestHookRunner_ResolvesPlaceholders(t *testing.T) {
	r := NewHookRunner(HookRunnerOptions{
		Values: staticValues(map[string]string{"env": "prod"}),
	}).(*hookRunner)

	assert.Equal(t, "deploy-prod.sh", r.resolve("deploy-${env}.sh"))
	assert.Equal(t, "plain", r.resolve("plain"))
	// Unknown names stay intact rather than failing the hook.
	assert.Equal(t, "${missing}", r.resolve("${missing}"))
}

func TestHookRunner_LogHookResolvesMessage(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := NewHookRunner(HookRunnerOptions{
		Values: staticValues(map[string]string{"env": "prod"}),
		Logger: zap.New(core),
	})

	hook := &target.Hook{Type: "log", Message: "deployed to ${env}"}
	require.NoError(t, r.Run(context.Background(), []*target.Hook{hook}, &target.Target{Name: "web"}))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "deployed to prod", entries[0].Message)
}

func TestHookRunner_ValuesConditionBinding(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := NewHookRunner(HookRunnerOptions{
		Evaluator: expr.New(),
		Values:    staticValues(map[string]string{"env": "prod"}),
		Logger:    zap.New(core),
	})

	hooks := []*target.Hook{
		{Type: "log", Message: "prod only", If: target.StringList{`values["env"] == "prod"`}},
		{Type: "log", Message: "dev only", If: target.StringList{`values["env"] == "dev"`}},
	}
	require.NoError(t, r.Run(context.Background(), hooks, &target.Target{Name: "web"}))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "prod only", entries[0].Message)
}
