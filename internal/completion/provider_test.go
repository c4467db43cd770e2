package completion

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/robottwo/exline/internal/cmdline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"mvdan.cc/sh/v3/expand"
)

func newTestProvider(t *testing.T, opts Options) *Provider {
	t.Helper()
	isolateUserConfig(t)
	if opts.Dir == "" {
		opts.Dir = fileTree(t)
	}
	if opts.Env == nil {
		opts.Env = expand.ListEnviron("FOO=1", "FOOBAR=2", "PATH="+t.TempDir())
	}
	return NewProvider(opts)
}

func TestProvider_Complete(t *testing.T) {
	dir := t.TempDir()
	tags := writeTags(t, dir, "tags", "main\tmain.go\t1\nmainloop\tloop.go\t1\nparse\tparse.go\t1\n")
	passwd := writeTags(t, dir, "passwd", "root:x:0:0:root:/root:/bin/sh\nalice:x:1000:1000:Alice:/home/alice:/bin/sh\n")

	p := newTestProvider(t, Options{
		TagFiles:     []string{tags},
		PasswdFile:   passwd,
		UserCommands: []UserCompletion{{Value: "Grep", Description: "Search files"}, {Value: "Make"}},
	})

	tests := []struct {
		name     string
		line     string
		kind     cmdline.Kind
		argStart int
		want     []string
	}{
		{"command prefix", "tabn", cmdline.KindCommand, 0, []string{"tabnext", "tabnew"}},
		{"command after range", "1,$wri", cmdline.KindCommand, 3, []string{"write"}},
		{"user command", "G", cmdline.KindCommand, 0, []string{"Grep"}},
		{"files", "e al", cmdline.KindFile, 2, []string{"alpha.txt", "alps"}},
		{"directories", "cd ", cmdline.KindDir, 3, []string{"alps"}},
		{"file options", "e ++en", cmdline.KindFileOpt, 4, []string{"enc=", "encoding="}},
		{"help fallback topics", "h quick", cmdline.KindHelp, 2, []string{"quickref"}},
		{"tags", "tag mai", cmdline.KindTags, 4, []string{"main", "mainloop"}},
		{"environment", "e $FO", cmdline.KindEnvironment, 3, []string{"FOO", "FOOBAR"}},
		{"users", "e ~a", cmdline.KindUser, 3, []string{"alice"}},
		{"delcommand", "delc M", cmdline.KindUserCommands, 5, []string{"Make"}},
		{"second segment", "set x | cd a", cmdline.KindDir, 11, []string{"alps"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Complete(context.Background(), tt.line, len(tt.line))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.argStart, got.ArgStart)
			assert.Equal(t, tt.want, values(got.Candidates))
		})
	}
}

func TestProvider_NotCompletable(t *testing.T) {
	p := newTestProvider(t, Options{})

	for _, line := range []string{"echo x", "pwd x", "xyzzy x"} {
		got, err := p.Complete(context.Background(), line, len(line))
		require.NoError(t, err)
		assert.False(t, got.Kind.Completable(), line)
		assert.Empty(t, got.Candidates, line)
	}
}

func TestProvider_CursorInsideLine(t *testing.T) {
	p := newTestProvider(t, Options{})

	line := "e al | pwd"
	got, err := p.Complete(context.Background(), line, 4)
	require.NoError(t, err)
	assert.Equal(t, cmdline.KindFile, got.Kind)
	assert.Equal(t, "e al", got.Line)
	assert.Equal(t, []string{"alpha.txt", "alps"}, values(got.Candidates))
}

func TestProvider_MaxCandidates(t *testing.T) {
	p := newTestProvider(t, Options{MaxCandidates: 5})

	got, err := p.Complete(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, cmdline.KindCommand, got.Kind)
	assert.Equal(t, []string{"append", "abbreviate", "abclear", "aboveleft", "all"}, values(got.Candidates))
	assert.Equal(t, "abbreviation: a", got.Candidates[0].Description)
}

func TestProvider_Fuzzy(t *testing.T) {
	p := newTestProvider(t, Options{Fuzzy: true})

	got, err := p.Complete(context.Background(), "h qkrf", 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"quickref"}, values(got.Candidates))
}

func TestProvider_Apply(t *testing.T) {
	p := newTestProvider(t, Options{})

	tests := []struct {
		name string
		line string
		want string
	}{
		{"directory gets its slash", "cd al", "cd alps/"},
		{"environment keeps the dollar", "e $FOOB", "e $FOOBAR"},
		{"command", "1,$wri", "1,$write"},
		{"escaped file name", "e sp", `e sp\ ace.txt`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Complete(context.Background(), tt.line, len(tt.line))
			require.NoError(t, err)
			require.NotEmpty(t, got.Candidates)

			line, cursor := got.Apply(0)
			assert.Equal(t, tt.want, line)
			assert.Equal(t, len(tt.want), cursor)
		})
	}

	got, err := p.Complete(context.Background(), "cd al", 5)
	require.NoError(t, err)
	line, cursor := got.Apply(7)
	assert.Equal(t, "cd al", line)
	assert.Equal(t, 5, cursor)
}

func TestProvider_RuntimeUserCommands(t *testing.T) {
	p := newTestProvider(t, Options{})

	got, err := p.Complete(context.Background(), "delc ", 5)
	require.NoError(t, err)
	assert.Empty(t, got.Candidates)

	p.Static().RegisterUserCommand("Format", "Format buffer")
	got, err = p.Complete(context.Background(), "delc ", 5)
	require.NoError(t, err)
	assert.Equal(t, []Candidate{{Value: "Format", Description: "Format buffer"}}, got.Candidates)
}

func TestProvider_Canceled(t *testing.T) {
	p := newTestProvider(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Complete(ctx, "e ", 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "failed to complete file")

	_, err = p.Complete(ctx, "h ", 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProvider_CustomRegistry(t *testing.T) {
	reg, err := cmdline.NewRegistry([]cmdline.Command{
		{Name: "open", Flags: cmdline.FlagExtra | cmdline.FlagFile},
		{Name: "quit"},
	})
	require.NoError(t, err)

	p := newTestProvider(t, Options{Registry: reg})
	assert.Same(t, reg, p.Classifier().Registry())

	got, err := p.Complete(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"open", "quit"}, values(got.Candidates))

	got, err = p.Complete(context.Background(), "o b", 3)
	require.NoError(t, err)
	assert.Equal(t, cmdline.KindFile, got.Kind)
	assert.Equal(t, []string{"beta"}, values(got.Candidates))
}

func TestProvider_LogsCompletions(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	p := newTestProvider(t, Options{Logger: zap.New(core)})

	_, err := p.Complete(context.Background(), "cd al", 5)
	require.NoError(t, err)

	entries := logs.FilterMessage("completed command line").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "dir", fields["kind"])
	assert.Equal(t, "cd", fields["command"])
	assert.Equal(t, "al", fields["arg"])
	assert.Equal(t, int64(1), fields["candidates"])
}

func TestProvider_HelpTagsFile(t *testing.T) {
	dir := t.TempDir()
	helpTags := writeTags(t, dir, "tags", ":edit\tediting.txt\t/*:edit*\n:echo\teval.txt\t/*:echo*\n")

	p := newTestProvider(t, Options{HelpTags: []string{helpTags, filepath.Join(dir, "missing")}})

	got, err := p.Complete(context.Background(), "help :e", 7)
	require.NoError(t, err)
	assert.Equal(t, []string{":echo", ":edit"}, values(got.Candidates))

	got, err = p.Complete(context.Background(), "help quick", 10)
	require.NoError(t, err)
	assert.Empty(t, got.Candidates, "configured help tags replace the built-in topics")
}
