package store_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	perrors "github.com/glorpus-work/passd/pkg/errors"
	"github.com/glorpus-work/passd/pkg/gpg"
	mockgpg "github.com/glorpus-work/passd/pkg/gpg/mocks"
	"github.com/glorpus-work/passd/pkg/store"
	mockstore "github.com/glorpus-work/passd/pkg/store/mocks"
)

// fakeCipher stands in for the encryption tool: ciphertext is the recipient
// followed by a NUL and the plaintext.
type fakeCipher struct {
	mu         sync.Mutex
	recipients []string
}

func (f *fakeCipher) run(_ context.Context, args []string, input []byte) ([]byte, error) {
	switch args[len(args)-2] {
	case "--encrypt":
		recipient := args[len(args)-3]
		f.mu.Lock()
		f.recipients = append(f.recipients, recipient)
		f.mu.Unlock()
		return append([]byte(recipient+"\x00"), input...), nil
	case "--decrypt":
		_, plaintext, ok := bytes.Cut(input, []byte{0})
		if !ok {
			return nil, &gpg.ExitError{Code: 2, Stderr: []byte("gpg: no valid OpenPGP data found.\n")}
		}
		return plaintext, nil
	}
	return nil, errors.New("unexpected arguments")
}

func (f *fakeCipher) lastRecipient() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recipients[len(f.recipients)-1]
}

type fixture struct {
	root   string
	store  *store.Store
	cipher *fakeCipher
	runner *mockgpg.MockRunner
}

func newFixture(t *testing.T, umask uint32, options ...store.Option) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	runner := mockgpg.NewMockRunner(ctrl)
	cipher := &fakeCipher{}
	runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(cipher.run).AnyTimes()

	root := filepath.Join(t.TempDir(), "store")
	require.NoError(t, os.Mkdir(root, 0o700))

	opts := store.NewOptions(root, "", umask)
	return &fixture{
		root:   root,
		store:  store.New(opts, runner, options...),
		cipher: cipher,
		runner: runner,
	}
}

func writeMarker(t *testing.T, dir, recipient string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, store.RecipientFile), []byte(recipient+"\n"), 0o600))
}

func TestNewOptions(t *testing.T) {
	opts := store.NewOptions("/store", "  --quiet   --yes ", 0o077)
	assert.Equal(t, "/store", opts.Directory)
	assert.Equal(t, []string{"--quiet", "--yes"}, opts.GPGOpts)
	assert.Equal(t, os.FileMode(0o700), opts.DirMode)
	assert.Equal(t, os.FileMode(0o600), opts.FileMode)

	assert.Empty(t, store.NewOptions("/store", "", 0o077).GPGOpts)
}

func TestWriteRead_RoundTrip(t *testing.T) {
	f := newFixture(t, 0o077)
	writeMarker(t, f.root, "ABCD1234")
	ctx := context.Background()

	for _, value := range [][]byte{[]byte("hunter2"), {}, {0, 0xff, 0x10}} {
		require.NoError(t, f.store.Write(ctx, "web/github", value))

		got, err := f.store.Read(ctx, "web/github", true)
		require.NoError(t, err)
		assert.Equal(t, value, got)
	}
}

func TestWrite_ReplacesLongerValue(t *testing.T) {
	f := newFixture(t, 0o077)
	writeMarker(t, f.root, "ABCD1234")
	ctx := context.Background()

	require.NoError(t, f.store.Write(ctx, "mail", []byte("a considerably longer original secret")))
	require.NoError(t, f.store.Write(ctx, "mail", []byte("short")))

	got, err := f.store.Read(ctx, "mail", true)
	require.NoError(t, err)
	assert.Equal(t, "short", string(got))
}

func TestWrite_PermissionDerivation(t *testing.T) {
	tests := []struct {
		umask    uint32
		wantDir  os.FileMode
		wantFile os.FileMode
	}{
		{umask: 0o077, wantDir: 0o700, wantFile: 0o600},
		{umask: 0o022, wantDir: 0o755, wantFile: 0o644},
	}

	for _, tt := range tests {
		f := newFixture(t, tt.umask)
		writeMarker(t, f.root, "ABCD1234")

		require.NoError(t, f.store.Write(context.Background(), "a/b/secret", []byte("v")))

		for _, dir := range []string{"a", "a/b"} {
			info, err := os.Stat(filepath.Join(f.root, dir))
			require.NoError(t, err)
			assert.Equal(t, tt.wantDir, info.Mode().Perm(), dir)
		}
		info, err := os.Stat(filepath.Join(f.root, "a", "b", "secret.gpg"))
		require.NoError(t, err)
		assert.Equal(t, tt.wantFile, info.Mode().Perm())
	}
}

func TestWrite_RecipientPrecedence(t *testing.T) {
	f := newFixture(t, 0o077)
	writeMarker(t, f.root, "ROOTKEY")
	writeMarker(t, filepath.Join(f.root, "work"), "WORKKEY")
	ctx := context.Background()

	require.NoError(t, f.store.Write(ctx, "work/deep/nested/vpn", []byte("v")))
	assert.Equal(t, "WORKKEY", f.cipher.lastRecipient())

	require.NoError(t, f.store.Write(ctx, "personal/bank", []byte("v")))
	assert.Equal(t, "ROOTKEY", f.cipher.lastRecipient())

	require.NoError(t, f.store.Write(ctx, "toplevel", []byte("v")))
	assert.Equal(t, "ROOTKEY", f.cipher.lastRecipient())

	recipient, err := f.store.Recipient(ctx, "work/deep")
	require.NoError(t, err)
	assert.Equal(t, "WORKKEY", recipient)
}

func TestWrite_PassesRecipientAndOptions(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mockgpg.NewMockRunner(ctrl)
	root := t.TempDir()
	writeMarker(t, root, "user@example.com")

	s := store.New(store.NewOptions(root, "--quiet", 0o077), runner)

	runner.EXPECT().
		Run(gomock.Any(), []string{"--quiet", "--recipient", "user@example.com", "--encrypt", "-"}, []byte("secret")).
		Return([]byte("ciphertext"), nil)

	require.NoError(t, s.Write(context.Background(), "entry", []byte("secret")))

	data, err := os.ReadFile(filepath.Join(root, "entry.gpg"))
	require.NoError(t, err)
	assert.Equal(t, "ciphertext", string(data))
}

func TestRead_PromptControl(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mockgpg.NewMockRunner(ctrl)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "entry.gpg"), []byte("ciphertext"), 0o600))

	s := store.New(store.NewOptions(root, "", 0o077), runner)

	gomock.InOrder(
		runner.EXPECT().
			Run(gomock.Any(), []string{"--pinentry-mode=error", "--decrypt", "-"}, []byte("ciphertext")).
			Return([]byte("plain"), nil),
		runner.EXPECT().
			Run(gomock.Any(), []string{"--decrypt", "-"}, []byte("ciphertext")).
			Return([]byte("plain"), nil),
	)

	_, err := s.Read(context.Background(), "entry", false)
	require.NoError(t, err)
	_, err = s.Read(context.Background(), "entry", true)
	require.NoError(t, err)
}

func TestWrite_NotInitialized(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mockgpg.NewMockRunner(ctrl)
	parent := t.TempDir()
	root := filepath.Join(parent, "store")
	require.NoError(t, os.Mkdir(root, 0o700))
	// markers above the root are never consulted
	writeMarker(t, parent, "OUTSIDE")

	s := store.New(store.NewOptions(root, "", 0o077), runner)

	err := s.Write(context.Background(), "a/b", []byte("v"))
	assert.ErrorIs(t, err, perrors.ErrNotInitialized)
	assert.Equal(t, perrors.NameNotInitialized, perrors.ToDBus(err).Name)

	_, statErr := os.Stat(filepath.Join(root, "a", "b.gpg"))
	assert.True(t, os.IsNotExist(statErr))

	_, err = s.Recipient(context.Background(), "")
	assert.ErrorIs(t, err, perrors.ErrNotInitialized)
}

func TestWrite_ToolFailureLeavesFileUntouched(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mockgpg.NewMockRunner(ctrl)
	root := t.TempDir()
	writeMarker(t, root, "UNKNOWNKEY")
	existing := filepath.Join(root, "entry.gpg")
	require.NoError(t, os.WriteFile(existing, []byte("old ciphertext"), 0o600))

	s := store.New(store.NewOptions(root, "", 0o077), runner)

	runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, &gpg.ExitError{Code: 2, Stderr: []byte("gpg: UNKNOWNKEY: skipped: No public key\n")})

	err := s.Write(context.Background(), "entry", []byte("new"))
	require.Error(t, err)
	assert.Equal(t, perrors.KindTool, perrors.KindOf(err))

	dbusErr := perrors.ToDBus(err)
	assert.Equal(t, perrors.NameGPGError, dbusErr.Name)
	assert.Equal(t, []interface{}{"gpg: UNKNOWNKEY: skipped: No public key\n"}, dbusErr.Body)

	data, readErr := os.ReadFile(existing)
	require.NoError(t, readErr)
	assert.Equal(t, "old ciphertext", string(data))
}

func TestWrite_ToolFailureCreatesNoFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mockgpg.NewMockRunner(ctrl)
	root := t.TempDir()
	writeMarker(t, root, "UNKNOWNKEY")

	s := store.New(store.NewOptions(root, "", 0o077), runner)

	runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, &gpg.ExitError{Code: 2, Stderr: []byte("gpg: UNKNOWNKEY: skipped: No public key\n")})

	err := s.Write(context.Background(), "new/entry", []byte("value"))
	require.Error(t, err)
	assert.Equal(t, perrors.KindTool, perrors.KindOf(err))

	assert.NoFileExists(t, filepath.Join(root, "new", "entry.gpg"))
	matches, globErr := filepath.Glob(filepath.Join(root, "new", "*"+store.SecretSuffix))
	require.NoError(t, globErr)
	assert.Empty(t, matches)
}

func TestRead_Failures(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		f := newFixture(t, 0o077)
		_, err := f.store.Read(context.Background(), "absent", false)
		assert.ErrorIs(t, err, perrors.ErrNotFound)
		assert.Equal(t, perrors.NameNoSuchObject, perrors.ToDBus(err).Name)
	})

	t.Run("tool failure", func(t *testing.T) {
		f := newFixture(t, 0o077)
		require.NoError(t, os.WriteFile(filepath.Join(f.root, "garbage.gpg"), []byte("no separator"), 0o600))

		_, err := f.store.Read(context.Background(), "garbage", false)
		assert.Equal(t, perrors.KindTool, perrors.KindOf(err))
		assert.Contains(t, err.Error(), "no valid OpenPGP data")
	})

	t.Run("spawn failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		runner := mockgpg.NewMockRunner(ctrl)
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "entry.gpg"), []byte("x"), 0o600))
		s := store.New(store.NewOptions(root, "", 0o077), runner)

		runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, os.ErrNotExist)

		_, err := s.Read(context.Background(), "entry", false)
		assert.Equal(t, perrors.KindIO, perrors.KindOf(err))
	})
}

func TestDelete_Idempotent(t *testing.T) {
	f := newFixture(t, 0o077)
	writeMarker(t, f.root, "ABCD1234")
	ctx := context.Background()

	require.NoError(t, f.store.Write(ctx, "entry", []byte("v")))
	require.NoError(t, f.store.Delete(ctx, "entry"))
	require.NoError(t, f.store.Delete(ctx, "entry"))
	require.NoError(t, f.store.Delete(ctx, "never/existed"))

	_, err := f.store.Read(ctx, "entry", false)
	assert.ErrorIs(t, err, perrors.ErrNotFound)
}

func TestList(t *testing.T) {
	f := newFixture(t, 0o077)
	writeMarker(t, f.root, "ABCD1234")
	ctx := context.Background()

	require.NoError(t, f.store.Write(ctx, "dir/one", []byte("1")))
	require.NoError(t, f.store.Write(ctx, "dir/two", []byte("2")))
	require.NoError(t, f.store.MakeDir(ctx, "dir/sub"))

	entries, err := f.store.List(ctx, "dir")
	require.NoError(t, err)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	require.Len(t, entries, 3)
	assert.Equal(t, "one.gpg", entries[0].Name)
	assert.False(t, entries[0].IsDir())
	assert.Equal(t, "sub", entries[1].Name)
	assert.True(t, entries[1].IsDir())
	assert.Equal(t, "two.gpg", entries[2].Name)
}

func TestList_CreatesMissingDirectory(t *testing.T) {
	f := newFixture(t, 0o022)

	entries, err := f.store.List(context.Background(), "fresh/dir")
	require.NoError(t, err)
	assert.Empty(t, entries)

	info, err := os.Stat(filepath.Join(f.root, "fresh", "dir"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestSecretPath_SuffixNormalization(t *testing.T) {
	f := newFixture(t, 0o077)
	writeMarker(t, f.root, "ABCD1234")
	ctx := context.Background()

	withoutSuffix, err := f.store.SecretPath("a/b")
	require.NoError(t, err)
	withSuffix, err := f.store.SecretPath("a/b.gpg")
	require.NoError(t, err)
	assert.Equal(t, withoutSuffix, withSuffix)
	assert.Equal(t, filepath.Join(f.root, "a", "b.gpg"), withSuffix)

	require.NoError(t, f.store.Write(ctx, "a/b", []byte("value")))
	got, err := f.store.Read(ctx, "a/b.gpg", true)
	require.NoError(t, err)
	assert.Equal(t, "value", string(got))
}

func TestPathEscapeIsDenied(t *testing.T) {
	f := newFixture(t, 0o077)
	ctx := context.Background()

	_, err := f.store.SecretPath("../outside")
	assert.ErrorIs(t, err, perrors.ErrPermissionDenied)

	assert.ErrorIs(t, f.store.Write(ctx, "../../etc/x", []byte("v")), perrors.ErrPermissionDenied)
	_, err = f.store.Read(ctx, "a/../../x", false)
	assert.ErrorIs(t, err, perrors.ErrPermissionDenied)
	assert.ErrorIs(t, f.store.Delete(ctx, "../x"), perrors.ErrPermissionDenied)
	_, err = f.store.List(ctx, "..")
	assert.ErrorIs(t, err, perrors.ErrPermissionDenied)
	assert.ErrorIs(t, f.store.RemoveDir(ctx, "../"), perrors.ErrPermissionDenied)
	assert.Equal(t, perrors.NameAccessDenied, perrors.ToDBus(err).Name)
}

func TestFileHelpers(t *testing.T) {
	f := newFixture(t, 0o027)
	ctx := context.Background()

	file, err := f.store.OpenFile(ctx, "meta/attributes.json")
	require.NoError(t, err)
	_, err = file.WriteString("{}")
	require.NoError(t, err)
	require.NoError(t, file.Close())

	info, err := f.store.Stat(ctx, "meta/attributes.json")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
	assert.Equal(t, int64(2), info.Size())

	_, err = f.store.Stat(ctx, "other/missing")
	assert.ErrorIs(t, err, perrors.ErrNotFound)
	dirInfo, err := os.Stat(filepath.Join(f.root, "other"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o750), dirInfo.Mode().Perm())

	require.NoError(t, f.store.MakeDir(ctx, "x/y/z"))
	require.NoError(t, f.store.RemoveDir(ctx, "x"))
	_, err = os.Stat(filepath.Join(f.root, "x"))
	assert.True(t, os.IsNotExist(err))

	err = f.store.RemoveDir(ctx, "x")
	assert.ErrorIs(t, err, perrors.ErrNotFound)
	assert.Equal(t, perrors.NameNoSuchObject, perrors.ToDBus(err).Name)
}

func TestHooks(t *testing.T) {
	ctrl := gomock.NewController(t)
	hooks := mockstore.NewMockHookRunner(ctrl)
	f := newFixture(t, 0o077, store.WithHooks(hooks))
	writeMarker(t, f.root, "ABCD1234")
	ctx := context.Background()
	secretFile := filepath.Join(f.root, "entry.gpg")

	gomock.InOrder(
		hooks.EXPECT().
			Run(gomock.Any(), store.HookEvent{Name: store.EventPostWrite, SecretPath: secretFile, StoreDir: f.root}).
			Return(errors.New("hook exploded")),
		hooks.EXPECT().
			Run(gomock.Any(), store.HookEvent{Name: store.EventPostDelete, SecretPath: secretFile, StoreDir: f.root}).
			Return(nil),
	)

	// hook failures never fail the operation
	require.NoError(t, f.store.Write(ctx, "entry", []byte("v")))
	require.NoError(t, f.store.Delete(ctx, "entry"))
	// nothing removed, no hook
	require.NoError(t, f.store.Delete(ctx, "entry"))
}

func TestWrite_Concurrent(t *testing.T) {
	f := newFixture(t, 0o077)
	writeMarker(t, f.root, "ABCD1234")
	ctx := context.Background()

	values := [][]byte{
		bytes.Repeat([]byte("a"), 4096),
		bytes.Repeat([]byte("b"), 16),
		bytes.Repeat([]byte("c"), 1024),
	}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(value []byte) {
			defer wg.Done()
			assert.NoError(t, f.store.Write(ctx, "contended", value))
		}(values[i%len(values)])
	}
	wg.Wait()

	got, err := f.store.Read(ctx, "contended", true)
	require.NoError(t, err)
	assert.Contains(t, values, got)
}

func TestSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	f := newFixture(t, 0o077, store.WithTracer(provider.Tracer("test")))
	writeMarker(t, f.root, "KEY")
	ctx := context.Background()

	require.NoError(t, f.store.Write(ctx, "traced", []byte("v")))
	_, err := f.store.Read(ctx, "../outside", false)
	require.ErrorIs(t, err, perrors.ErrPermissionDenied)

	spans := recorder.Ended()
	names := make([]string, 0, len(spans))
	for _, span := range spans {
		names = append(names, span.Name())
	}
	assert.Contains(t, names, "store.Write")
	assert.Contains(t, names, "store.Read")

	last := spans[len(spans)-1]
	assert.Equal(t, "store.Read", last.Name())
	assert.Equal(t, codes.Error, last.Status().Code)
	assert.Equal(t, "Access denied", last.Status().Description)
}
