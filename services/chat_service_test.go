package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sahilchouksey/e-center-api/model"
	"github.com/sahilchouksey/e-center-api/services/chatbot"
	"github.com/sahilchouksey/e-center-api/services/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionMessages(t *testing.T, svc *ChatService, sessionID uint) []model.ChatMessage {
	t.Helper()
	var messages []model.ChatMessage
	require.NoError(t, svc.db.Where("session_id = ?", sessionID).Order("created_at ASC, id ASC").Find(&messages).Error)
	return messages
}

func loadSession(t *testing.T, svc *ChatService, id uint) model.ChatSession {
	t.Helper()
	var session model.ChatSession
	require.NoError(t, svc.db.First(&session, id).Error)
	return session
}

func TestChatCreatesSessionAndRetitles(t *testing.T) {
	db := newTestDB(t)
	c, _ := newTestCache(t)
	fake := &fakeCompleter{}
	svc := NewChatService(db, fake, c)
	user := createUser(t, db, "aylar", model.RoleStudent)

	msg := "Can you explain when I should use the present perfect instead of the past simple?"
	res, err := svc.Chat(context.Background(), ChatRequest{
		UserID:           user.ID,
		Message:          msg,
		ProficiencyLevel: model.ProficiencyBeginner,
	})
	require.NoError(t, err)

	assert.Equal(t, "reply 1", res.Response)
	assert.Equal(t, model.ProficiencyBeginner, res.ProficiencyLevel)
	assert.Equal(t, model.FocusGeneral, res.LearningFocus)
	assert.False(t, res.Cached)

	// First message: persona only, settings prefix before the session context
	require.Len(t, fake.lastHistory, 1)
	assert.Equal(t,
		"[Context: User is at beginner level focusing on general] [English level: beginner, Focus: general] "+msg,
		fake.lastMessage)

	session := loadSession(t, svc, res.SessionID)
	assert.Equal(t, string([]rune(msg)[:50])+"...", session.Title)
	assert.Equal(t, 2, session.MessageCount)
	assert.NotNil(t, session.LastMessageAt)

	messages := sessionMessages(t, svc, res.SessionID)
	require.Len(t, messages, 2)
	assert.Equal(t, model.MessageRoleUser, messages[0].Role)
	assert.Equal(t, msg, messages[0].Content)
	assert.Equal(t, true, messages[0].Metadata[model.MetaFirstMessage])
	assert.Equal(t, model.MessageRoleAssistant, messages[1].Role)
	assert.Equal(t, res.MessageID, messages[1].ID)
	assert.Equal(t, "models/test-model", messages[1].ModelUsed)
	assert.Equal(t, "plain", messages[1].Metadata[model.MetaIntent])
}

func TestRetitleHappensAtMostOnce(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db, &fakeCompleter{}, nil)
	user := createUser(t, db, "merdan", model.RoleStudent)
	ctx := context.Background()

	res, err := svc.Chat(ctx, ChatRequest{UserID: user.ID, Message: "Hi!"})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSessionTitle, loadSession(t, svc, res.SessionID).Title)

	id := res.SessionID
	_, err = svc.Chat(ctx, ChatRequest{UserID: user.ID, SessionID: &id, Message: "Tell me about articles"})
	require.NoError(t, err)
	assert.Equal(t, "Tell me about articles", loadSession(t, svc, id).Title)

	_, err = svc.Chat(ctx, ChatRequest{UserID: user.ID, SessionID: &id, Message: "And what about prepositions?"})
	require.NoError(t, err)
	assert.Equal(t, "Tell me about articles", loadSession(t, svc, id).Title)
}

func TestChatSendsBoundedHistory(t *testing.T) {
	db := newTestDB(t)
	fake := &fakeCompleter{}
	svc := NewChatService(db, fake, nil)
	user := createUser(t, db, "jeren", model.RoleStudent)

	session, err := svc.CreateSession(context.Background(), user.ID, CreateSessionInput{Title: "Practice"})
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 15; i++ {
		role := model.MessageRoleUser
		if i%2 == 1 {
			role = model.MessageRoleAssistant
		}
		require.NoError(t, db.Create(&model.ChatMessage{
			SessionID: session.ID,
			Role:      role,
			Content:   fmt.Sprintf("stored %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}).Error)
	}

	id := session.ID
	_, err = svc.Chat(context.Background(), ChatRequest{UserID: user.ID, SessionID: &id, Message: "What should I study next?"})
	require.NoError(t, err)

	require.Len(t, fake.lastHistory, chatbot.MaxHistoryTurns+1)
	assert.True(t, strings.HasPrefix(fake.lastHistory[0].Text, "You are an English teaching assistant."))
	assert.Equal(t, "stored 5", fake.lastHistory[1].Text)
	assert.Equal(t, "stored 14", fake.lastHistory[chatbot.MaxHistoryTurns].Text)
	assert.Equal(t, gemini.RoleUser, fake.lastHistory[chatbot.MaxHistoryTurns].Role)
	assert.Equal(t, "[Context: User is at intermediate level focusing on general] What should I study next?", fake.lastMessage)
}

func TestQuotaFailureStoresApology(t *testing.T) {
	db := newTestDB(t)
	c, _ := newTestCache(t)
	fake := &fakeCompleter{err: &gemini.ServiceError{Kind: gemini.KindQuotaExceeded, StatusCode: 429}}
	svc := NewChatService(db, fake, c)
	user := createUser(t, db, "batyr", model.RoleStudent)
	ctx := context.Background()

	res, err := svc.Chat(ctx, ChatRequest{UserID: user.ID, Message: "Explain conditionals"})
	require.NoError(t, err)
	assert.Equal(t, "I'm sorry, we've reached our API usage limit. Please try again later.", res.Response)

	messages := sessionMessages(t, svc, res.SessionID)
	require.Len(t, messages, 2)
	assert.Equal(t, model.MessageRoleAssistant, messages[1].Role)
	assert.Equal(t, res.Response, messages[1].Content)
	assert.Equal(t, string(gemini.KindQuotaExceeded), messages[1].Metadata[model.MetaErrorKind])

	// Apologies are never cached
	id := res.SessionID
	_, err = svc.Chat(ctx, ChatRequest{UserID: user.ID, SessionID: &id, Message: "Explain conditionals"})
	require.NoError(t, err)
	assert.Equal(t, 2, fake.callCount())
}

func TestIdenticalMessageIsServedFromCache(t *testing.T) {
	db := newTestDB(t)
	c, mr := newTestCache(t)
	fake := &fakeCompleter{}
	svc := NewChatService(db, fake, c)
	user := createUser(t, db, "ogulgerek", model.RoleStudent)
	ctx := context.Background()

	first, err := svc.Chat(ctx, ChatRequest{UserID: user.ID, Message: "What does 'nevertheless' mean?"})
	require.NoError(t, err)
	assert.True(t, mr.Exists(chatbot.ResponseKey(first.SessionID, "What does 'nevertheless' mean?")))

	id := first.SessionID
	second, err := svc.Chat(ctx, ChatRequest{UserID: user.ID, SessionID: &id, Message: "What does 'nevertheless' mean?"})
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.Response, second.Response)
	assert.Equal(t, 1, fake.callCount())
	assert.Len(t, sessionMessages(t, svc, id), 4)

	mr.FastForward(chatbot.ResponseTTL + time.Second)
	third, err := svc.Chat(ctx, ChatRequest{UserID: user.ID, SessionID: &id, Message: "What does 'nevertheless' mean?"})
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, 2, fake.callCount())
}

func TestChatRejectsForeignSession(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db, &fakeCompleter{}, nil)
	owner := createUser(t, db, "owner", model.RoleStudent)
	other := createUser(t, db, "other", model.RoleStudent)

	session, err := svc.CreateSession(context.Background(), owner.ID, CreateSessionInput{})
	require.NoError(t, err)

	id := session.ID
	_, err = svc.Chat(context.Background(), ChatRequest{UserID: other.ID, SessionID: &id, Message: "hello there"})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	missing := uint(9999)
	_, err = svc.Chat(context.Background(), ChatRequest{UserID: owner.ID, SessionID: &missing, Message: "hello there"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, svc.locks.size())
}

func TestChatValidatesInput(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db, &fakeCompleter{}, nil)

	_, err := svc.Chat(context.Background(), ChatRequest{UserID: 1, Message: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = svc.Chat(context.Background(), ChatRequest{UserID: 1, Message: "hi", ProficiencyLevel: "expert"})
	assert.ErrorIs(t, err, ErrInvalidProficiency)

	_, err = svc.Chat(context.Background(), ChatRequest{UserID: 1, Message: "hi", LearningFocus: "cooking"})
	assert.ErrorIs(t, err, ErrInvalidLearningFocus)
}

func TestOverridesApplyToExistingSession(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db, &fakeCompleter{}, nil)
	user := createUser(t, db, "nurgul", model.RoleStudent)

	session, err := svc.CreateSession(context.Background(), user.ID, CreateSessionInput{})
	require.NoError(t, err)

	id := session.ID
	res, err := svc.Chat(context.Background(), ChatRequest{
		UserID:        user.ID,
		SessionID:     &id,
		Message:       "Give me an advanced writing exercise",
		LearningFocus: model.FocusWriting,
	})
	require.NoError(t, err)
	assert.Equal(t, model.FocusWriting, res.LearningFocus)
	assert.Equal(t, model.ProficiencyIntermediate, res.ProficiencyLevel)

	stored := loadSession(t, svc, id)
	assert.Equal(t, model.FocusWriting, stored.LearningFocus)

	messages := sessionMessages(t, svc, id)
	require.Len(t, messages, 2)
	assert.Equal(t, "exercise", messages[1].Metadata[model.MetaIntent])
	assert.Equal(t, "writing", messages[1].Metadata[model.MetaExerciseType])
	assert.Equal(t, "advanced", messages[1].Metadata[model.MetaLevel])
}

func TestConcurrentTurnsOnOneSessionAlternate(t *testing.T) {
	db := newTestDB(t)
	fake := &fakeCompleter{}
	svc := NewChatService(db, fake, nil)
	user := createUser(t, db, "kerim", model.RoleStudent)

	session, err := svc.CreateSession(context.Background(), user.ID, CreateSessionInput{})
	require.NoError(t, err)
	id := session.ID

	const workers = 6
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Chat(context.Background(), ChatRequest{UserID: user.ID, SessionID: &id, Message: fmt.Sprintf("question number %d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	messages := sessionMessages(t, svc, id)
	require.Len(t, messages, workers*2)

	firsts := 0
	for i, m := range messages {
		if i%2 == 0 {
			assert.Equal(t, model.MessageRoleUser, m.Role, "message %d", i)
		} else {
			assert.Equal(t, model.MessageRoleAssistant, m.Role, "message %d", i)
		}
		if m.Metadata[model.MetaFirstMessage] == true {
			firsts++
		}
	}
	assert.Equal(t, 1, firsts)
	assert.Equal(t, workers*2, loadSession(t, svc, id).MessageCount)
	assert.Equal(t, 0, svc.locks.size())
}

func TestTestConnectionIsMemoised(t *testing.T) {
	db := newTestDB(t)
	c, mr := newTestCache(t)
	fake := &fakeCompleter{}
	svc := NewChatService(db, fake, c)
	ctx := context.Background()

	first := svc.TestConnection(ctx)
	assert.Equal(t, ProbeResult{Status: "success", Message: "API is working"}, first)

	second := svc.TestConnection(ctx)
	assert.True(t, second.Cached)
	assert.Equal(t, "API is working", second.Message)
	assert.Equal(t, 1, fake.pingCount())

	mr.FastForward(chatbot.ConnectionSuccessTTL + time.Second)
	svc.TestConnection(ctx)
	assert.Equal(t, 2, fake.pingCount())
}

func TestFailedProbeIsCachedBriefly(t *testing.T) {
	db := newTestDB(t)
	c, mr := newTestCache(t)
	fake := &fakeCompleter{pingErr: &gemini.ServiceError{Kind: gemini.KindAuthFailure, StatusCode: 403}}
	svc := NewChatService(db, fake, c)
	ctx := context.Background()

	res := svc.TestConnection(ctx)
	assert.Equal(t, "error", res.Status)
	assert.True(t, strings.HasPrefix(res.Message, "Connection failed: "))
	assert.True(t, svc.TestConnection(ctx).Cached)
	assert.Equal(t, 1, fake.pingCount())

	mr.FastForward(chatbot.ConnectionFailureTTL + time.Second)
	assert.False(t, svc.TestConnection(ctx).Cached)
	assert.Equal(t, 2, fake.pingCount())
}

func TestTestConnectionWithoutCacheAlwaysProbes(t *testing.T) {
	db := newTestDB(t)
	fake := &fakeCompleter{}
	svc := NewChatService(db, fake, nil)

	svc.TestConnection(context.Background())
	svc.TestConnection(context.Background())
	assert.Equal(t, 2, fake.pingCount())
}

func TestGuestUserIsCreatedOnce(t *testing.T) {
	db := newTestDB(t)
	c, mr := newTestCache(t)
	svc := NewChatService(db, &fakeCompleter{}, c)
	ctx := context.Background()

	id, err := svc.GuestUser(ctx)
	require.NoError(t, err)
	cached, err := mr.Get(chatbot.GuestUserKey)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprint(id), cached)

	again, err := svc.GuestUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	mr.FlushAll()
	third, err := svc.GuestUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, third)

	var count int64
	require.NoError(t, db.Model(&model.User{}).Where("username = ?", "test_user").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTitleFromMessage(t *testing.T) {
	assert.Equal(t, "Short title", TitleFromMessage("Short title"))
	long := strings.Repeat("ä", 60)
	assert.Equal(t, strings.Repeat("ä", 50)+"...", TitleFromMessage(long))
}

func TestSessionLocksSerialize(t *testing.T) {
	locks := newSessionLocks()
	unlock := locks.Lock(1)

	acquired := make(chan struct{})
	go func() {
		u := locks.Lock(1)
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	case <-time.After(50 * time.Millisecond):
	}

	other := locks.Lock(2)
	other()

	unlock()
	unlock()
	<-acquired
	assert.Eventually(t, func() bool { return locks.size() == 0 }, time.Second, 10*time.Millisecond)
}

func TestSimpleChatUsesOneShotFraming(t *testing.T) {
	db := newTestDB(t)
	fake := &fakeCompleter{}
	svc := NewChatService(db, fake, nil)
	svc.SetComposer(chatbot.NewComposer(chatbot.DefaultLibrary()).WithPicker(func(int) int { return 0 }))

	res, err := svc.SimpleChat(context.Background(), "  Give me a beginner grammar exercise ")
	require.NoError(t, err)
	assert.Equal(t, "reply 1", res.Response)
	assert.Equal(t, "Give me a beginner grammar exercise", res.Message)
	assert.False(t, res.Timestamp.IsZero())

	// persona, acknowledgement, then the enhanced user turn
	require.Len(t, fake.lastHistory, 2)
	assert.Equal(t, gemini.RoleUser, fake.lastHistory[0].Role)
	assert.True(t, strings.HasPrefix(fake.lastHistory[0].Text, "You are an English teaching assistant."))
	assert.Equal(t, gemini.RoleModel, fake.lastHistory[1].Role)
	assert.Contains(t, fake.lastHistory[1].Text, "Teacher Emma")
	assert.Contains(t, fake.lastMessage, "Please generate an English beginner level grammar exercise.")
	assert.Contains(t, fake.lastMessage, "Practice using the verb '{verb}' in present tense with 5 example sentences.")
	assert.NotContains(t, fake.lastMessage, "[Context:")

	var sessions, messages int64
	require.NoError(t, db.Model(&model.ChatSession{}).Count(&sessions).Error)
	require.NoError(t, db.Model(&model.ChatMessage{}).Count(&messages).Error)
	assert.Zero(t, sessions)
	assert.Zero(t, messages)
}

func TestSimpleChatApologisesOnFailure(t *testing.T) {
	db := newTestDB(t)
	fake := &fakeCompleter{err: &gemini.ServiceError{Kind: gemini.KindTimeout}}
	svc := NewChatService(db, fake, nil)

	res, err := svc.SimpleChat(context.Background(), "What is a gerund?")
	require.NoError(t, err)
	assert.Equal(t, Apology(gemini.KindTimeout), res.Response)

	_, err = svc.SimpleChat(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestChatSurvivesCacheOutage(t *testing.T) {
	db := newTestDB(t)
	fake := &fakeCompleter{}
	svc := NewChatService(db, fake, newBrokenCache(t))
	user := createUser(t, db, "gulnara", model.RoleStudent)
	ctx := context.Background()

	first, err := svc.Chat(ctx, ChatRequest{UserID: user.ID, Message: "How do I use 'since' and 'for'?"})
	require.NoError(t, err)

	id := first.SessionID
	second, err := svc.Chat(ctx, ChatRequest{UserID: user.ID, SessionID: &id, Message: "How do I use 'since' and 'for'?"})
	require.NoError(t, err)
	assert.Equal(t, "reply 2", second.Response)
	assert.False(t, second.Cached)
	assert.Equal(t, 2, fake.callCount())
	assert.Len(t, sessionMessages(t, svc, id), 4)

	probe := svc.TestConnection(ctx)
	assert.Equal(t, "success", probe.Status)
	assert.False(t, probe.Cached)
	assert.False(t, svc.TestConnection(ctx).Cached)
	assert.Equal(t, 2, fake.pingCount())
}
