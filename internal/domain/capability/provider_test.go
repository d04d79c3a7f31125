package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	kind      Kind
	status    Status
	statusErr error
	installed []string
	removed   []string
	failWith  error
}

func (f *fakeProvider) Kind() Kind { return f.kind }

func (f *fakeProvider) IsInstalled(_ context.Context, _ Item) (Status, error) {
	return f.status, f.statusErr
}

func (f *fakeProvider) Install(_ context.Context, item Item) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.installed = append(f.installed, item.Name)
	return nil
}

func (f *fakeProvider) Remove(_ context.Context, item Item) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.removed = append(f.removed, item.Name)
	return nil
}

func TestEnsureInstalledSkipsPresentItems(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{kind: KindBrew, status: StatusPresent}
	res := EnsureInstalled(context.Background(), p, NewItem("ripgrep"))

	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.Equal(t, StatusPresent, res.Status)
	assert.Empty(t, p.installed)
}

func TestEnsureInstalledInstallsAbsentItems(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{kind: KindBrew, status: StatusAbsent}
	res := EnsureInstalled(context.Background(), p, NewItem("ripgrep"))

	assert.Equal(t, OutcomeInstalled, res.Outcome)
	assert.Equal(t, []string{"ripgrep"}, p.installed)
	assert.NoError(t, res.Err)
}

func TestEnsureInstalledTreatsUnknownAsAbsent(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{kind: KindApt, status: StatusUnknown, statusErr: errors.New("dpkg query failed")}
	res := EnsureInstalled(context.Background(), p, NewItem("jq"))

	assert.Equal(t, OutcomeInstalled, res.Outcome)
	assert.Equal(t, StatusUnknown, res.Status)
	assert.Equal(t, []string{"jq"}, p.installed)
}

func TestEnsureInstalledReportsFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("network down")
	p := &fakeProvider{kind: KindBrew, status: StatusAbsent, failWith: boom}
	res := EnsureInstalled(context.Background(), p, NewItem("fzf"))

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, boom)
	assert.True(t, res.Failed())
}

func TestEnsureRemovedSkipsAbsentItems(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{kind: KindBrew, status: StatusAbsent}
	res := EnsureRemoved(context.Background(), p, NewItem("ripgrep"))

	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.Empty(t, p.removed)
}

func TestEnsureRemovedRemovesPresentItems(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{kind: KindBrew, status: StatusPresent}
	res := EnsureRemoved(context.Background(), p, NewItem("ripgrep"))

	assert.Equal(t, OutcomeRemoved, res.Outcome)
	assert.Equal(t, []string{"ripgrep"}, p.removed)
}

func TestDryRunSuppressesMutations(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{kind: KindBrew, status: StatusAbsent}
	dry := NewDryRun(p, nil)

	require.NoError(t, dry.Install(context.Background(), NewItem("ripgrep")))
	require.NoError(t, dry.Remove(context.Background(), NewItem("ripgrep")))

	assert.Empty(t, p.installed)
	assert.Empty(t, p.removed)
	assert.Equal(t, KindBrew, dry.Kind())

	status, err := dry.IsInstalled(context.Background(), NewItem("ripgrep"))
	require.NoError(t, err)
	assert.Equal(t, StatusAbsent, status)
}

func TestRegistryDecorate(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(&fakeProvider{kind: KindBrew, status: StatusAbsent})
	reg.Register(&fakeProvider{kind: KindApt, status: StatusAbsent})
	require.True(t, reg.Has(KindBrew))
	require.False(t, reg.Has(KindWinget))

	reg.Decorate(func(p Provider) Provider { return NewDryRun(p, nil) })

	p, err := reg.Get(KindBrew)
	require.NoError(t, err)
	_, ok := p.(*DryRun)
	assert.True(t, ok)

	assert.Equal(t, []Kind{KindApt, KindBrew}, reg.Kinds())

	_, err = reg.Get(KindWinget)
	assert.Error(t, err)
}

func TestParseManagerKind(t *testing.T) {
	t.Parallel()

	k, err := ParseManagerKind("brew")
	require.NoError(t, err)
	assert.Equal(t, KindBrew, k)

	_, err = ParseManagerKind("pacman")
	assert.Error(t, err)
}

func TestItemAttrs(t *testing.T) {
	t.Parallel()

	item := NewItem("JetBrainsMono").
		WithAttr(AttrURL, "https://example.com/font.zip")

	assert.Equal(t, "https://example.com/font.zip", item.Attr(AttrURL))
	assert.Equal(t, "", item.Attr(AttrDest))
	assert.Equal(t, "", NewItem("x").Attr(AttrURL))
}
