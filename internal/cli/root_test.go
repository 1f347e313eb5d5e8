package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanq16/expensesync/internal/api"
	"github.com/tanq16/expensesync/internal/config"
	"github.com/tanq16/expensesync/internal/selftest"
	"github.com/tanq16/expensesync/internal/storage"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "expensesync", cmd.Use)
	assert.Contains(t, cmd.Long, "API_BASE")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"list", "add", "delete", "receipt", "selftest", "serve"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	envFile := cmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, envFile)
	assert.Equal(t, ".env", envFile.DefValue)
}

var envKeys = []string{
	"API_BASE", "S3_BASE", "USE_MOCK", "LOG_LEVEL", "HTTP_TIMEOUT",
	"STORAGE_TYPE", "STORAGE_URL", "STORAGE_USER", "STORAGE_PASS", "STORAGE_SSL",
}

// execute runs the root command with a clean environment plus env.
func execute(t *testing.T, env map[string]string, stdin string, args ...string) (string, string, error) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	t.Setenv("LOG_LEVEL", "error")
	for k, v := range env {
		t.Setenv(k, v)
	}

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func newBackend(t *testing.T, opts api.Options) (*httptest.Server, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore(storage.Fixtures())
	srv := httptest.NewServer(api.NewHandler(store, opts, zerolog.Nop()).Routes())
	t.Cleanup(srv.Close)
	return srv, store
}

func decodeData(t *testing.T, out string, data any) {
	t.Helper()
	resp := struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, data))
}

func TestInvalidFormat(t *testing.T) {
	_, errOut, err := execute(t, nil, "", "--format", "xml", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, errOut, "invalid format")
}

func TestList_Mock(t *testing.T) {
	out, errOut, err := execute(t, nil, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "mock-1")
	assert.Contains(t, out, "Coffee")
	assert.Contains(t, out, "120.00")
	assert.Contains(t, out, "mock-2-receipt.jpg")
	assert.Contains(t, errOut, "MOCK mode")
}

func TestList_LiveJSON(t *testing.T) {
	srv, _ := newBackend(t, api.Options{Shape: api.ShapeTyped})

	out, _, err := execute(t, map[string]string{"API_BASE": srv.URL}, "", "--format", "json", "list")
	require.NoError(t, err)

	var result ListResult
	decodeData(t, out, &result)
	assert.False(t, result.Mock)
	assert.Empty(t, result.Error)
	require.Len(t, result.Expenses, 2)
	assert.Equal(t, "mock-1", result.Expenses[0].ID)
	assert.Equal(t, float64(599), result.Expenses[1].Amount)
}

func TestList_UnreachableFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	out, errOut, err := execute(t, map[string]string{"API_BASE": srv.URL}, "", "list")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Falling back to fixture data")
	assert.Contains(t, out, "Books")
}

func TestAdd_WithReceipt(t *testing.T) {
	srv, store := newBackend(t, api.Options{PresignGetOnly: true})
	receipt := filepath.Join(t.TempDir(), "taxi.png")
	require.NoError(t, os.WriteFile(receipt, []byte("png-bytes"), 0o600))

	out, _, err := execute(t, map[string]string{"API_BASE": srv.URL}, "",
		"--format", "json", "add", "--title", "Taxi", "--amount", "100", "--category", "Travel", "--receipt", receipt)
	require.NoError(t, err)

	var result AddResult
	decodeData(t, out, &result)
	require.NotEmpty(t, result.ExpenseID)
	assert.NotEmpty(t, result.ReceiptID)
	assert.Equal(t, 3, result.Count)
	assert.Empty(t, result.Warning)

	saved, err := store.GetExpense(result.ExpenseID)
	require.NoError(t, err)
	require.NotNil(t, saved.ReceiptKey)
	assert.Equal(t, result.ReceiptID, *saved.ReceiptKey)
	stored, err := store.GetReceipt(result.ReceiptID)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), stored.Data)
	assert.Equal(t, "image/png", stored.ContentType)
}

func TestAdd_Mock(t *testing.T) {
	out, _, err := execute(t, nil, "", "add", "--title", "Lunch", "--amount", "12.5")
	require.NoError(t, err)
	assert.Contains(t, out, "Expense saved successfully.")
	assert.Contains(t, out, "mock-")
}

func TestAdd_ValidationFailure(t *testing.T) {
	srv, _ := newBackend(t, api.Options{})

	_, errOut, err := execute(t, map[string]string{"API_BASE": srv.URL}, "", "add", "--amount", "10")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, errOut, "Please provide a title for the expense.")

	_, errOut, err = execute(t, map[string]string{"API_BASE": srv.URL}, "", "add", "--title", "Taxi")
	require.Error(t, err)
	assert.Contains(t, errOut, "Please provide a valid amount.")
}

func TestAdd_MissingReceiptFile(t *testing.T) {
	_, _, err := execute(t, nil, "", "add", "--title", "Taxi", "--amount", "1", "--receipt", filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDelete_Prompt(t *testing.T) {
	srv, store := newBackend(t, api.Options{})
	env := map[string]string{"API_BASE": srv.URL}

	_, errOut, err := execute(t, env, "n\n", "delete", "mock-1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, errOut, "Are you sure you want to delete this expense?")
	_, err = store.GetExpense("mock-1")
	require.NoError(t, err)

	out, _, err := execute(t, env, "yes\n", "delete", "mock-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Expense deleted successfully.")
	_, err = store.GetExpense("mock-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete_BackendError(t *testing.T) {
	srv, _ := newBackend(t, api.Options{})

	_, errOut, err := execute(t, map[string]string{"API_BASE": srv.URL}, "", "delete", "--yes", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, errOut, "Error deleting expense:")
	assert.Contains(t, errOut, "404")
}

func TestReceipt(t *testing.T) {
	srv, store := newBackend(t, api.Options{})
	require.NoError(t, store.PutReceipt(storage.Receipt{Key: "r1", ContentType: "image/png", Data: []byte("x")}))

	out, _, err := execute(t, map[string]string{"API_BASE": srv.URL}, "", "receipt", "r1")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/receipts/r1\n", out)
}

func TestReceipt_DirectStorageFallback(t *testing.T) {
	srv, _ := newBackend(t, api.Options{})
	env := map[string]string{"API_BASE": srv.URL, "S3_BASE": "https://bucket.example/receipts/"}

	out, _, err := execute(t, env, "", "receipt", "unknown key.png")
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.example/receipts/unknown%20key.png\n", out)

	_, _, err = execute(t, env, "", "receipt", "")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReceipt_MockDefaultsToAbsoluteURL(t *testing.T) {
	// the fixture backend holds no bytes for mock-2-receipt.jpg
	out, _, err := execute(t, nil, "", "receipt", "mock-2-receipt.jpg")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultStorageBase+"/mock-2-receipt.jpg\n", out)

	u, err := url.Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.True(t, u.IsAbs())
	assert.NotEmpty(t, u.Host)
}

func TestSelfTest_Mock(t *testing.T) {
	out, _, err := execute(t, nil, "", "selftest")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ fetchExpenses: loaded 2 items")
	assert.Contains(t, out, "✓ createExpense (mock): created mock-")
}

func TestSelfTest_LiveFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`[]`))
			return
		}
		http.Error(w, "read only", http.StatusForbidden)
	}))
	defer srv.Close()

	env := map[string]string{"API_BASE": srv.URL}
	out, errOut, err := execute(t, env, "", "selftest")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ fetchExpenses: loaded 0 items")
	assert.Contains(t, out, "✗ createExpense (real API): failed: 403")
	assert.Contains(t, errOut, "Error [E004]: 1 of 2 self-tests failed")

	out, _, err = execute(t, env, "", "--format", "json", "selftest")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string            `json:"code"`
			Message string            `json:"message"`
			Details []selftest.Result `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeSelfTest, resp.Error.Code)
	assert.Equal(t, "1 of 2 self-tests failed", resp.Error.Message)
	require.Len(t, resp.Error.Details, 2)
	assert.False(t, resp.Error.Details[1].OK)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	t.Setenv("LOG_LEVEL", "error")

	ctx, cancel := context.WithCancel(context.Background())
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--env-file", "", "serve", "--listen", "127.0.0.1:0", "--envelope", "items"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServe_BadEnvelope(t *testing.T) {
	_, errOut, err := execute(t, nil, "", "serve", "--listen", "127.0.0.1:0", "--envelope", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, errOut, "unsupported envelope")
}
