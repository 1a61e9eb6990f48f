package app

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanhoc/mocktest/internal/apitest"
	"github.com/vanhoc/mocktest/internal/config"
	"github.com/vanhoc/mocktest/internal/model"
	"github.com/vanhoc/mocktest/internal/service"
)

func memoryConfig(baseURL string) *config.Config {
	return &config.Config{
		AuthAPIURL:     baseURL,
		TestAPIURL:     baseURL,
		RequestTimeout: 5 * time.Second,
		TokenStore:     config.StoreMemory,
		DraftStore:     config.StoreMemory,
		MaxDBConns:     1,
		TickInterval:   time.Second,
	}
}

func TestNew_UnknownTokenStore(t *testing.T) {
	cfg := memoryConfig("http://127.0.0.1:1")
	cfg.TokenStore = "keyring"

	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "keyring")
}

func TestApp_LoginThenAttempt(t *testing.T) {
	srv := apitest.New("app-test-secret")
	srv.AddAccount("student@example.com", "secret123", 9)
	srv.AddTest(model.MockTest{
		ID:              3,
		Name:            "Spelling",
		DurationSeconds: 300,
		Questions: []model.MockQuestion{
			{ID: 1, Question: "Pick the right spelling", QuestionType: model.QuestionTypeMultipleChoices, Point: 1, Options: []model.MockOption{
				{ID: 11, Name: "necessary", Answer: true},
				{ID: 12, Name: "neccessary"},
			}},
		},
	})
	ts := srv.Start()
	defer ts.Close()

	ctx := context.Background()
	a, err := New(ctx, memoryConfig(ts.URL), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	a.StartArchive()
	assert.Nil(t, a.Recorder, "no archive without a database")

	session := a.NewSession(nil, nil)
	defer session.Close()

	err = session.Open(ctx, 3)
	require.Error(t, err, "not logged in yet")
	assert.Equal(t, service.BannerTestLoad, session.Snapshot().Banner.Kind)

	id, err := a.Auth.Login(ctx, "student@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, int64(9), id.AccountID)

	require.NoError(t, session.Retry(ctx))
	require.NoError(t, session.SelectOption(ctx, 1, 11))
	final, err := session.Finish(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, final.AttemptPoint)

	review, err := a.NewReviewService().Load(ctx, final.ID, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, review.Percent)
}

func TestApp_LoginRejectsBadPassword(t *testing.T) {
	srv := apitest.New("app-test-secret")
	srv.AddAccount("student@example.com", "secret123", 9)
	ts := srv.Start()
	defer ts.Close()

	a, err := New(context.Background(), memoryConfig(ts.URL), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Auth.Login(context.Background(), "student@example.com", "wrong-password")
	require.Error(t, err)

	_, err = a.Tokens.Identity(context.Background())
	assert.Error(t, err)
}
