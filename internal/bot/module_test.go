package bot

import (
	"testing"

	"go.uber.org/fx"

	"github.com/polkiloo/digishop/internal/adapter/telegram"
	"github.com/polkiloo/digishop/internal/config"
	testhelpers "github.com/polkiloo/digishop/internal/test"
	"github.com/polkiloo/digishop/internal/usecase"
)

func TestModuleBindsClientAsNotifierAndAPI(t *testing.T) {
	cfg := &config.Config{TelegramAPIURL: "http://localhost", BotToken: "123:abc"}

	var (
		client   *telegram.Client
		notifier usecase.Notifier
		api      API
	)
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg, testhelpers.DiscardLogger()),
		telegram.Module,
		Module,
		fx.Populate(&client, &notifier, &api),
	)
	if err := app.Err(); err != nil {
		t.Fatalf("fx app returned error: %v", err)
	}
	if client == nil {
		t.Fatal("expected telegram client")
	}
	if got, ok := notifier.(*telegram.Client); !ok || got != client {
		t.Fatalf("notifier must be the shared client, got %T", notifier)
	}
	if got, ok := api.(*telegram.Client); !ok || got != client {
		t.Fatalf("api must be the shared client, got %T", api)
	}
}
