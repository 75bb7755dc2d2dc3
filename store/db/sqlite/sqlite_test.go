package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lithammer/shortuuid/v4"
	"github.com/stretchr/testify/require"

	"github.com/muhandis-ai/muhandis/internal/profile"
	"github.com/muhandis-ai/muhandis/store"
)

func newTestDriver(t *testing.T) store.Driver {
	t.Helper()
	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "muhandis_test.db"),
	}
	driver, err := NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { driver.Close() })
	return driver
}

func TestThreadCRUD(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)

	created, err := driver.CreateThread(ctx, &store.Thread{
		UID:       shortuuid.New(),
		CreatorID: 1,
		Title:     "New chat",
		Mode:      store.ThreadModeChat,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, store.Normal, created.RowStatus)

	threads, err := driver.ListThreads(ctx, &store.FindThread{CreatorID: &created.CreatorID})
	require.NoError(t, err)
	require.Len(t, threads, 1)

	starred := true
	title := "Bridge design questions"
	updated, err := driver.UpdateThread(ctx, &store.UpdateThread{
		ID:      created.ID,
		Title:   &title,
		Starred: &starred,
	})
	require.NoError(t, err)
	require.True(t, updated.Starred)
	require.Equal(t, title, updated.Title)

	require.NoError(t, driver.DeleteThread(ctx, &store.DeleteThread{ID: created.ID}))
	threads, err = driver.ListThreads(ctx, &store.FindThread{ID: &created.ID})
	require.NoError(t, err)
	require.Empty(t, threads)
}

func TestMessagesCascadeOnThreadDelete(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)

	thread, err := driver.CreateThread(ctx, &store.Thread{
		UID:       shortuuid.New(),
		CreatorID: 1,
		Mode:      store.ThreadModeChat,
	})
	require.NoError(t, err)

	for _, content := range []string{"hello", "world"} {
		_, err := driver.CreateMessage(ctx, &store.Message{
			UID:      shortuuid.New(),
			ThreadID: thread.ID,
			Role:     store.MessageRoleUser,
			Content:  content,
			Payload:  "{}",
		})
		require.NoError(t, err)
	}

	messages, err := driver.ListMessages(ctx, &store.FindMessage{ThreadID: &thread.ID})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "hello", messages[0].Content)

	require.NoError(t, driver.DeleteThread(ctx, &store.DeleteThread{ID: thread.ID}))

	messages, err = driver.ListMessages(ctx, &store.FindMessage{ThreadID: &thread.ID})
	require.NoError(t, err)
	require.Empty(t, messages)
}

func TestUserSettingUpsert(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)

	userID := int32(7)
	setting, err := driver.UpsertUserSetting(ctx, &store.UpsertUserSetting{
		UserID:   userID,
		Settings: `{"rtl":true}`,
	})
	require.NoError(t, err)
	require.Equal(t, `{"rtl":true}`, setting.Settings)

	setting, err = driver.UpsertUserSetting(ctx, &store.UpsertUserSetting{
		UserID:   userID,
		Settings: `{"rtl":false}`,
	})
	require.NoError(t, err)
	require.Equal(t, `{"rtl":false}`, setting.Settings)

	found, err := driver.GetUserSetting(ctx, &store.FindUserSetting{UserID: &userID})
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, `{"rtl":false}`, found.Settings)

	missing := int32(999)
	found, err = driver.GetUserSetting(ctx, &store.FindUserSetting{UserID: &missing})
	require.NoError(t, err)
	require.Nil(t, found)
}

func TestEventLogAppendOnly(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)

	for i := 0; i < 3; i++ {
		_, err := driver.CreateEventLog(ctx, &store.EventLog{
			CreatorID: 1,
			Type:      "message_sent",
			Payload:   "{}",
		})
		require.NoError(t, err)
	}

	limit := 2
	events, err := driver.ListEventLogs(ctx, &store.FindEventLog{Limit: &limit})
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Newest first.
	require.Greater(t, events[0].ID, events[1].ID)
}
