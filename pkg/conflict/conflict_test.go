package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainring-dev/chainring/pkg/semver"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	sv, err := semver.NewResolver(0)
	require.NoError(t, err)
	return NewResolver(sv)
}

func TestParseStrategy(t *testing.T) {
	for _, raw := range []string{"highest", "lowest", "prompt"} {
		got, err := ParseStrategy(raw)
		require.NoError(t, err)
		assert.Equal(t, Strategy(raw), got)
	}

	_, err := ParseStrategy("newest")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	r := newResolver(t)

	available := []string{"1.0.0", "1.1.0", "1.2.0", "2.0.0"}

	tests := []struct {
		name        string
		conflict    VersionConflict
		strategy    Strategy
		want        string
		wantErr     bool
		interactive bool
	}{
		{
			name: "highest picks max common candidate",
			conflict: VersionConflict{
				PluginName: "logger",
				RequestedBy: []Requirement{
					{Requester: "a", Range: "^1.0.0"},
					{Requester: "b", Range: "^1.1.0"},
				},
				AvailableVersions: available,
			},
			strategy: StrategyHighest,
			want:     "1.2.0",
		},
		{
			name: "lowest picks min common candidate",
			conflict: VersionConflict{
				PluginName: "logger",
				RequestedBy: []Requirement{
					{Requester: "a", Range: "^1.0.0"},
					{Requester: "b", Range: "^1.1.0"},
				},
				AvailableVersions: available,
			},
			strategy: StrategyLowest,
			want:     "1.1.0",
		},
		{
			name: "single requester",
			conflict: VersionConflict{
				PluginName: "logger",
				RequestedBy: []Requirement{
					{Requester: "a", Range: "~1.0.0"},
				},
				AvailableVersions: available,
			},
			strategy: StrategyHighest,
			want:     "1.0.0",
		},
		{
			name: "disjoint ranges are unresolvable",
			conflict: VersionConflict{
				PluginName: "logger",
				RequestedBy: []Requirement{
					{Requester: "a", Range: "^1.0.0"},
					{Requester: "b", Range: "^2.0.0"},
				},
				AvailableVersions: available,
			},
			strategy: StrategyHighest,
			wantErr:  true,
		},
		{
			name: "prompt always requires a human",
			conflict: VersionConflict{
				PluginName: "logger",
				RequestedBy: []Requirement{
					{Requester: "a", Range: "^1.0.0"},
				},
				AvailableVersions: available,
			},
			strategy:    StrategyPrompt,
			wantErr:     true,
			interactive: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.conflict, tt.strategy)
			if tt.wantErr {
				require.Error(t, err)
				var unresolvable *UnresolvableError
				require.ErrorAs(t, err, &unresolvable)
				assert.Equal(t, tt.interactive, unresolvable.Interactive)
				assert.Equal(t, tt.conflict.PluginName, unresolvable.PluginName)
				assert.Len(t, unresolvable.RequestedBy, len(tt.conflict.RequestedBy))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveUnknownStrategy(t *testing.T) {
	r := newResolver(t)

	_, err := r.Resolve(VersionConflict{PluginName: "x"}, Strategy("newest"))
	assert.Error(t, err)
}

func TestResolveInvalidInputs(t *testing.T) {
	r := newResolver(t)

	_, err := r.Resolve(VersionConflict{
		PluginName:        "logger",
		RequestedBy:       []Requirement{{Requester: "a", Range: ">>bad"}},
		AvailableVersions: []string{"1.0.0"},
	}, StrategyHighest)
	assert.ErrorIs(t, err, semver.ErrInvalidRange)

	_, err = r.Resolve(VersionConflict{
		PluginName:        "logger",
		RequestedBy:       []Requirement{{Requester: "a", Range: "^1.0.0"}},
		AvailableVersions: []string{"one.two.three"},
	}, StrategyHighest)
	assert.ErrorIs(t, err, semver.ErrInvalidVersion)
}

func TestUnresolvableErrorMessage(t *testing.T) {
	err := &UnresolvableError{
		PluginName: "logger",
		RequestedBy: []Requirement{
			{Requester: "a", Range: "^1.0.0"},
			{Requester: "b", Range: "^2.0.0"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, `"logger"`)
	assert.Contains(t, msg, "a requires ^1.0.0")
	assert.Contains(t, msg, "b requires ^2.0.0")
}

func TestSuggestResolutions(t *testing.T) {
	r := newResolver(t)

	conflicts := []VersionConflict{
		{
			PluginName: "logger",
			RequestedBy: []Requirement{
				{Requester: "a", Range: "^1.0.0"},
				{Requester: "b", Range: "^1.1.0"},
			},
			AvailableVersions: []string{"1.0.0", "1.1.0", "1.2.0"},
		},
		{
			PluginName: "cache",
			RequestedBy: []Requirement{
				{Requester: "a", Range: "^1.0.0"},
				{Requester: "b", Range: "^2.0.0"},
			},
			AvailableVersions: []string{"1.0.0", "2.0.0"},
		},
	}

	suggestions := r.SuggestResolutions(conflicts)
	require.Len(t, suggestions, 2)

	assert.Equal(t, "1.2.0", suggestions["logger"].Version)
	assert.Empty(t, suggestions["logger"].Reason)

	assert.Empty(t, suggestions["cache"].Version)
	assert.Contains(t, suggestions["cache"].Reason, "no version satisfies")
}
