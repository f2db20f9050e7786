package session

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/matchup/internal/model"
)

// --- モック ---

type mockSessionRepo struct {
	sessions []model.Session
}

func (m *mockSessionRepo) List(ctx context.Context) ([]model.Session, error) {
	return m.sessions, nil
}

func (m *mockSessionRepo) Update(ctx context.Context, fn func(sessions []model.Session) ([]model.Session, error)) ([]model.Session, error) {
	updated, err := fn(m.sessions)
	if err != nil {
		return nil, err
	}
	if updated != nil {
		m.sessions = updated
	}
	return m.sessions, nil
}

type mockClubRepo struct {
	clubs []model.Club
}

func (m *mockClubRepo) List(ctx context.Context) ([]model.Club, error) {
	return m.clubs, nil
}

// mockNotifier は発火されたインテントを記録する。
type mockNotifier struct {
	created       []model.Session
	spotAvailable []model.Session
	joined        []string
	left          []string
	chats         []string
}

func (m *mockNotifier) SessionCreated(s model.Session)  { m.created = append(m.created, s) }
func (m *mockNotifier) SpotAvailable(s model.Session)   { m.spotAvailable = append(m.spotAvailable, s) }
func (m *mockNotifier) ParticipantJoined(s model.Session, name string) {
	m.joined = append(m.joined, name)
}
func (m *mockNotifier) ParticipantLeft(s model.Session, name string) {
	m.left = append(m.left, name)
}
func (m *mockNotifier) ChatMessage(s model.Session, sender, text string) {
	m.chats = append(m.chats, text)
}

// passthroughSanitizer はテスト用のサニタイザー。本文をそのまま返す。
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(text string) string { return text }

// --- ヘルパー ---

var testNow = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestService(repo *mockSessionRepo, clubs *mockClubRepo, notifier *mockNotifier) *Service {
	svc := NewService(repo, clubs, notifier, passthroughSanitizer{}, Config{MaxSessions: 100})
	svc.now = func() time.Time { return testNow }
	return svc
}

func validInput() Input {
	return Input{
		Datetime:            testNow.Add(24 * time.Hour).Format(time.RFC3339),
		DurationMinutes:     90,
		Club:                "中央体育館",
		Level:               "intermediate",
		Capacity:            4,
		PricePerParticipant: 500,
	}
}

func testClubs() *mockClubRepo {
	return &mockClubRepo{clubs: []model.Club{"中央体育館", "北コート"}}
}

func futureSession(id, organizer string) model.Session {
	return model.Session{
		ID:              id,
		Datetime:        testNow.Add(24 * time.Hour),
		DurationMinutes: 90,
		Club:            "中央体育館",
		Level:           model.LevelIntermediate,
		Capacity:        4,
		Organizer:       organizer,
		Participants:    []string{},
		Followers:       []string{},
		Messages:        []model.Message{},
		CreatedAt:       testNow,
	}
}

// --- 作成 ---

// TestService_Create はセッション作成と新規セッション通知の発火を検証する。
func TestService_Create(t *testing.T) {
	repo := &mockSessionRepo{}
	notifier := &mockNotifier{}
	svc := newTestService(repo, testClubs(), notifier)

	created, err := svc.Create(context.Background(), "alice", validInput())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID == "" {
		t.Error("expected generated session ID")
	}
	if created.Organizer != "alice" {
		t.Errorf("Organizer = %q, want %q", created.Organizer, "alice")
	}
	if created.ReminderSent {
		t.Error("new session should have ReminderSent = false")
	}
	if len(repo.sessions) != 1 {
		t.Fatalf("expected 1 persisted session, got %d", len(repo.sessions))
	}
	if len(notifier.created) != 1 {
		t.Errorf("expected 1 SessionCreated intent, got %d", len(notifier.created))
	}
}

// TestService_Create_Validation は作成バリデーションの各拒否パスを検証する。
func TestService_Create_Validation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(in *Input)
		wantCode string
	}{
		{
			name:     "解析できない日時",
			mutate:   func(in *Input) { in.Datetime = "2026/01/16 12:00" },
			wantCode: model.ErrCodeInvalidDatetime,
		},
		{
			name:     "過去の日時",
			mutate:   func(in *Input) { in.Datetime = testNow.Add(-time.Hour).Format(time.RFC3339) },
			wantCode: model.ErrCodeInvalidDatetime,
		},
		{
			name:     "セッション時間が0",
			mutate:   func(in *Input) { in.DurationMinutes = 0 },
			wantCode: model.ErrCodeInvalidDuration,
		},
		{
			name:     "セッション時間が上限超過",
			mutate:   func(in *Input) { in.DurationMinutes = 301 },
			wantCode: model.ErrCodeInvalidDuration,
		},
		{
			name:     "未知のクラブ",
			mutate:   func(in *Input) { in.Club = "存在しないクラブ" },
			wantCode: model.ErrCodeUnknownClub,
		},
		{
			name:     "不正なレベル",
			mutate:   func(in *Input) { in.Level = "expert" },
			wantCode: model.ErrCodeInvalidLevel,
		},
		{
			name:     "定員が0",
			mutate:   func(in *Input) { in.Capacity = 0 },
			wantCode: model.ErrCodeInvalidCapacity,
		},
		{
			name:     "定員が上限超過",
			mutate:   func(in *Input) { in.Capacity = 13 },
			wantCode: model.ErrCodeInvalidCapacity,
		},
		{
			name:     "負の参加費",
			mutate:   func(in *Input) { in.PricePerParticipant = -1 },
			wantCode: model.ErrCodeInvalidPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockSessionRepo{}
			notifier := &mockNotifier{}
			svc := newTestService(repo, testClubs(), notifier)

			in := validInput()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), "alice", in)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			apiErr, ok := err.(*model.APIError)
			if !ok {
				t.Fatalf("expected *model.APIError, got %T", err)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("error code = %q, want %q", apiErr.Code, tt.wantCode)
			}
			if len(repo.sessions) != 0 {
				t.Error("rejected create should not persist a session")
			}
			if len(notifier.created) != 0 {
				t.Error("rejected create should not fire SessionCreated")
			}
		})
	}
}

// TestService_Create_ClockSkewTolerance は5分以内の過去日時が許容されることを検証する。
func TestService_Create_ClockSkewTolerance(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := newTestService(repo, testClubs(), &mockNotifier{})

	in := validInput()
	in.Datetime = testNow.Add(-4 * time.Minute).Format(time.RFC3339)

	if _, err := svc.Create(context.Background(), "alice", in); err != nil {
		t.Errorf("datetime within skew tolerance should be accepted: %v", err)
	}
}

// TestService_Create_DuplicateSlot は同一クラブ・同一日時の重複が拒否されることを検証する。
func TestService_Create_DuplicateSlot(t *testing.T) {
	repo := &mockSessionRepo{sessions: []model.Session{futureSession("s1", "alice")}}
	svc := newTestService(repo, testClubs(), &mockNotifier{})

	_, err := svc.Create(context.Background(), "bob", validInput())
	if err == nil {
		t.Fatal("expected duplicate slot error, got nil")
	}
	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrCodeDuplicateSlot {
		t.Errorf("error = %v, want code %s", err, model.ErrCodeDuplicateSlot)
	}

	// 別クラブの同一日時は許容される
	in := validInput()
	in.Club = "北コート"
	if _, err := svc.Create(context.Background(), "bob", in); err != nil {
		t.Errorf("same datetime at a different club should be accepted: %v", err)
	}
}

// TestService_Create_SessionLimit はセッション数上限の検査を検証する。
func TestService_Create_SessionLimit(t *testing.T) {
	repo := &mockSessionRepo{sessions: []model.Session{futureSession("s1", "alice")}}
	notifier := &mockNotifier{}
	svc := NewService(repo, testClubs(), notifier, passthroughSanitizer{}, Config{MaxSessions: 1})
	svc.now = func() time.Time { return testNow }

	in := validInput()
	in.Club = "北コート"
	_, err := svc.Create(context.Background(), "bob", in)
	if err == nil {
		t.Fatal("expected session limit error, got nil")
	}
	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrCodeSessionLimit {
		t.Errorf("error = %v, want code %s", err, model.ErrCodeSessionLimit)
	}
}

// TestService_Create_PriceRounding は参加費が小数2桁に丸められることを検証する。
func TestService_Create_PriceRounding(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := newTestService(repo, testClubs(), &mockNotifier{})

	in := validInput()
	in.PricePerParticipant = 10.567

	created, err := svc.Create(context.Background(), "alice", in)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.PricePerParticipant != 10.57 {
		t.Errorf("PricePerParticipant = %v, want 10.57", created.PricePerParticipant)
	}
}

// --- 一覧とパージ ---

// TestService_List_PurgesExpired は終了済みセッションが一覧から除外され、
// フィルタ済みリストが永続化されることを検証する。
func TestService_List_PurgesExpired(t *testing.T) {
	expired := futureSession("old", "alice")
	expired.Datetime = testNow.Add(-3 * time.Hour)
	expired.DurationMinutes = 60

	alive := futureSession("new", "bob")
	alive.Club = "北コート"

	repo := &mockSessionRepo{sessions: []model.Session{expired, alive}}
	svc := newTestService(repo, testClubs(), &mockNotifier{})

	sessions, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session after purge, got %d", len(sessions))
	}
	if sessions[0].ID != "new" {
		t.Errorf("surviving session = %q, want %q", sessions[0].ID, "new")
	}
	if len(repo.sessions) != 1 {
		t.Errorf("purge should persist the filtered list, repo has %d sessions", len(repo.sessions))
	}
}

// TestService_List_InProgressNotPurged は開始済みだが終了前のセッションが
// 一覧に残ることを検証する。
func TestService_List_InProgressNotPurged(t *testing.T) {
	inProgress := futureSession("live", "alice")
	inProgress.Datetime = testNow.Add(-30 * time.Minute)
	inProgress.DurationMinutes = 90

	repo := &mockSessionRepo{sessions: []model.Session{inProgress}}
	svc := newTestService(repo, testClubs(), &mockNotifier{})

	sessions, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("in-progress session should not be purged, got %d sessions", len(sessions))
	}
}

// --- 編集 ---

// TestService_Edit_OrganizerOnly は主催者以外の編集が拒否されることを検証する。
func TestService_Edit_OrganizerOnly(t *testing.T) {
	repo := &mockSessionRepo{sessions: []model.Session{futureSession("s1", "alice")}}
	svc := newTestService(repo, testClubs(), &mockNotifier{})

	_, err := svc.Edit(context.Background(), "bob", "s1", validInput())
	if err == nil {
		t.Fatal("expected not-organizer error, got nil")
	}
	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrCodeNotOrganizer {
		t.Errorf("error = %v, want code %s", err, model.ErrCodeNotOrganizer)
	}
}

// TestService_Edit_CapacityBelowOccupied は占有人数未満への定員縮小が拒否されることを検証する。
func TestService_Edit_CapacityBelowOccupied(t *testing.T) {
	sess := futureSession("s1", "alice")
	sess.Participants = []string{"bob", "carol"}
	repo := &mockSessionRepo{sessions: []model.Session{sess}}
	svc := newTestService(repo, testClubs(), &mockNotifier{})

	in := validInput()
	in.Capacity = 2 // 占有人数は主催者込みで3

	_, err := svc.Edit(context.Background(), "alice", "s1", in)
	if err == nil {
		t.Fatal("expected capacity-below-occupied error, got nil")
	}
	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrCodeCapacityBelowOccupied {
		t.Errorf("error = %v, want code %s", err, model.ErrCodeCapacityBelowOccupied)
	}
}

// TestService_Edit_DatetimeChangeResetsReminder は開催日時の変更が
// reminderSentをリセットし、据え置きはリセットしないことを検証する。
func TestService_Edit_DatetimeChangeResetsReminder(t *testing.T) {
	sess := futureSession("s1", "alice")
	sess.ReminderSent = true
	repo := &mockSessionRepo{sessions: []model.Session{sess}}
	svc := newTestService(repo, testClubs(), &mockNotifier{})

	// 日時据え置きの編集はリセットしない
	in := validInput()
	edited, err := svc.Edit(context.Background(), "alice", "s1", in)
	if err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}
	if !edited.ReminderSent {
		t.Error("unchanged datetime should keep ReminderSent = true")
	}

	// 日時を変更するとリセットされる
	in.Datetime = testNow.Add(48 * time.Hour).Format(time.RFC3339)
	edited, err = svc.Edit(context.Background(), "alice", "s1", in)
	if err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}
	if edited.ReminderSent {
		t.Error("datetime change should reset ReminderSent to false")
	}
}

// TestService_Edit_UniquenessExcludesSelf は編集時の一意性検査が
// 対象セッション自身を除外することを検証する。
func TestService_Edit_UniquenessExcludesSelf(t *testing.T) {
	repo := &mockSessionRepo{sessions: []model.Session{futureSession("s1", "alice")}}
	svc := newTestService(repo, testClubs(), &mockNotifier{})

	// 同一クラブ・同一日時のままの編集は自己衝突にならない
	if _, err := svc.Edit(context.Background(), "alice", "s1", validInput()); err != nil {
		t.Errorf("edit keeping the same slot should not self-collide: %v", err)
	}
}

// --- 削除 ---

// TestService_Delete は主催者と特権ユーザーによる削除、他者の拒否を検証する。
func TestService_Delete(t *testing.T) {
	newRepo := func() *mockSessionRepo {
		return &mockSessionRepo{sessions: []model.Session{futureSession("s1", "alice")}}
	}

	// 主催者は削除できる
	repo := newRepo()
	svc := newTestService(repo, testClubs(), &mockNotifier{})
	if err := svc.Delete(context.Background(), "alice", "s1"); err != nil {
		t.Errorf("organizer delete returned error: %v", err)
	}
	if len(repo.sessions) != 0 {
		t.Error("session should be removed")
	}

	// 第三者は削除できない
	repo = newRepo()
	svc = newTestService(repo, testClubs(), &mockNotifier{})
	if err := svc.Delete(context.Background(), "bob", "s1"); err == nil {
		t.Error("non-organizer delete should be rejected")
	}

	// 特権ユーザーは任意セッションを削除できる
	repo = newRepo()
	svc = NewService(repo, testClubs(), &mockNotifier{}, passthroughSanitizer{}, Config{MaxSessions: 100, SuperUser: "admin"})
	svc.now = func() time.Time { return testNow }
	if err := svc.Delete(context.Background(), "Admin", "s1"); err != nil {
		t.Errorf("super user delete returned error: %v", err)
	}
}

// --- 参加・離脱 ---

// TestService_JoinLeaveCycle は定員2のセッションでの参加・満員・離脱・
// 空き枠通知のシナリオを検証する。
func TestService_JoinLeaveCycle(t *testing.T) {
	sess := futureSession("s1", "alice")
	sess.Capacity = 2
	repo := &mockSessionRepo{sessions: []model.Session{sess}}
	notifier := &mockNotifier{}
	svc := newTestService(repo, testClubs(), notifier)

	// bobが参加して満員（主催者1 + 参加者1 = 定員2）
	joined, err := svc.Join(context.Background(), "bob", "s1")
	if err != nil {
		t.Fatalf("Join returned error: %v", err)
	}
	if !joined.IsFull() {
		t.Error("session should be full after bob joins")
	}
	if len(notifier.joined) != 1 || notifier.joined[0] != "bob" {
		t.Errorf("ParticipantJoined intents = %v, want [bob]", notifier.joined)
	}

	// 満員のセッションへの参加は拒否される
	_, err = svc.Join(context.Background(), "carol", "s1")
	if err == nil {
		t.Fatal("join on a full session should be rejected")
	}
	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrCodeSessionFull {
		t.Errorf("error = %v, want code %s", err, model.ErrCodeSessionFull)
	}

	// bobが離脱すると空き枠発生通知と離脱通知が発火する
	left, err := svc.Leave(context.Background(), "bob", "s1")
	if err != nil {
		t.Fatalf("Leave returned error: %v", err)
	}
	if left.HasParticipant("bob") {
		t.Error("bob should be removed from participants")
	}
	if len(notifier.spotAvailable) != 1 {
		t.Errorf("expected 1 SpotAvailable intent, got %d", len(notifier.spotAvailable))
	}
	if len(notifier.left) != 1 || notifier.left[0] != "bob" {
		t.Errorf("ParticipantLeft intents = %v, want [bob]", notifier.left)
	}
}

// TestService_Leave_NotFull_NoSpotAvailable は満員でないセッションからの離脱が
// 空き枠発生通知を発火しないことを検証する。
func TestService_Leave_NotFull_NoSpotAvailable(t *testing.T) {
	sess := futureSession("s1", "alice")
	sess.Capacity = 4
	sess.Participants = []string{"bob"}
	repo := &mockSessionRepo{sessions: []model.Session{sess}}
	notifier := &mockNotifier{}
	svc := newTestService(repo, testClubs(), notifier)

	if _, err := svc.Leave(context.Background(), "bob", "s1"); err != nil {
		t.Fatalf("Leave returned error: %v", err)
	}
	if len(notifier.spotAvailable) != 0 {
		t.Error("leave from a non-full session should not fire SpotAvailable")
	}
}

// TestService_Join_Rejections は参加の各拒否パスを検証する。
func TestService_Join_Rejections(t *testing.T) {
	started := futureSession("started", "alice")
	started.Datetime = testNow.Add(-10 * time.Minute)

	joined := futureSession("joined", "alice")
	joined.Club = "北コート"
	joined.Participants = []string{"bob"}

	repo := &mockSessionRepo{sessions: []model.Session{started, joined}}
	svc := newTestService(repo, testClubs(), &mockNotifier{})

	tests := []struct {
		name     string
		actor    string
		id       string
		wantCode string
	}{
		{"開始済みセッション", "bob", "started", model.ErrCodeSessionStarted},
		{"主催者本人", "alice", "joined", model.ErrCodeOrganizerSelf},
		{"参加済みユーザー", "bob", "joined", model.ErrCodeAlreadyParticipant},
		{"大文字小文字違いの参加済みユーザー", "BOB", "joined", model.ErrCodeAlreadyParticipant},
		{"存在しないセッション", "bob", "missing", model.ErrCodeSessionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Join(context.Background(), tt.actor, tt.id)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			apiErr, ok := err.(*model.APIError)
			if !ok {
				t.Fatalf("expected *model.APIError, got %T", err)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("error code = %q, want %q", apiErr.Code, tt.wantCode)
			}
		})
	}
}

// TestService_CapacityOne_ImmediatelyFull は定員1のセッションが
// 主催者だけで満員になることを検証する。
func TestService_CapacityOne_ImmediatelyFull(t *testing.T) {
	sess := futureSession("s1", "alice")
	sess.Capacity = 1
	repo := &mockSessionRepo{sessions: []model.Session{sess}}
	svc := newTestService(repo, testClubs(), &mockNotifier{})

	_, err := svc.Join(context.Background(), "bob", "s1")
	if err == nil {
		t.Fatal("capacity-1 session should be full with only the organizer")
	}
	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrCodeSessionFull {
		t.Errorf("error = %v, want code %s", err, model.ErrCodeSessionFull)
	}
}

// --- 参加者リスト置換 ---

// TestService_UpdateParticipants は参加者リストの一括置換を検証する。
func TestService_UpdateParticipants(t *testing.T) {
	sess := futureSession("s1", "alice")
	sess.Capacity = 3
	repo := &mockSessionRepo{sessions: []model.Session{sess}}
	svc := newTestService(repo, testClubs(), &mockNotifier{})

	updated, err := svc.UpdateParticipants(context.Background(), "alice", "s1", []string{" bob ", "carol"})
	if err != nil {
		t.Fatalf("UpdateParticipants returned error: %v", err)
	}
	if len(updated.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(updated.Participants))
	}
	if updated.Participants[0] != "bob" {
		t.Errorf("participant name should be trimmed, got %q", updated.Participants[0])
	}
}

// TestService_UpdateParticipants_Rejections は置換の各拒否パスを検証する。
func TestService_UpdateParticipants_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		actor    string
		names    []string
		wantCode string
	}{
		{"主催者以外", "bob", []string{"carol"}, model.ErrCodeNotOrganizer},
		{"空の参加者名", "alice", []string{"  "}, model.ErrCodeInvalidParticipant},
		{"主催者と同名", "alice", []string{"ALICE"}, model.ErrCodeInvalidParticipant},
		{"定員超過", "alice", []string{"b", "c", "d", "e"}, model.ErrCodeSessionFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := futureSession("s1", "alice")
			sess.Capacity = 4
			repo := &mockSessionRepo{sessions: []model.Session{sess}}
			svc := newTestService(repo, testClubs(), &mockNotifier{})

			_, err := svc.UpdateParticipants(context.Background(), tt.actor, "s1", tt.names)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			apiErr, ok := err.(*model.APIError)
			if !ok {
				t.Fatalf("expected *model.APIError, got %T", err)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("error code = %q, want %q", apiErr.Code, tt.wantCode)
			}
		})
	}
}

// TestService_UpdateParticipants_BecameOpen は満員から空きありへの遷移が
// 空き枠発生通知を発火することを検証する。
func TestService_UpdateParticipants_BecameOpen(t *testing.T) {
	sess := futureSession("s1", "alice")
	sess.Capacity = 3
	sess.Participants = []string{"bob", "carol"} // 満員
	repo := &mockSessionRepo{sessions: []model.Session{sess}}
	notifier := &mockNotifier{}
	svc := newTestService(repo, testClubs(), notifier)

	if _, err := svc.UpdateParticipants(context.Background(), "alice", "s1", []string{"bob"}); err != nil {
		t.Fatalf("UpdateParticipants returned error: %v", err)
	}
	if len(notifier.spotAvailable) != 1 {
		t.Errorf("expected 1 SpotAvailable intent, got %d", len(notifier.spotAvailable))
	}

	// 満員のままの置換は発火しない
	if _, err := svc.UpdateParticipants(context.Background(), "alice", "s1", []string{"bob", "dave"}); err != nil {
		t.Fatalf("UpdateParticipants returned error: %v", err)
	}
	if len(notifier.spotAvailable) != 1 {
		t.Error("full-to-full replacement should not fire SpotAvailable")
	}
}

// --- フォロー ---

// TestService_FollowUnfollow はフォローとフォロー解除を検証する。
func TestService_FollowUnfollow(t *testing.T) {
	repo := &mockSessionRepo{sessions: []model.Session{futureSession("s1", "alice")}}
	svc := newTestService(repo, testClubs(), &mockNotifier{})

	followed, err := svc.Follow(context.Background(), "bob", "s1")
	if err != nil {
		t.Fatalf("Follow returned error: %v", err)
	}
	if !followed.HasFollower("bob") {
		t.Error("bob should be in followers")
	}

	// 二重フォローは拒否される
	if _, err := svc.Follow(context.Background(), "bob", "s1"); err == nil {
		t.Error("duplicate follow should be rejected")
	}

	// 主催者は自分のセッションをフォローできない
	if _, err := svc.Follow(context.Background(), "alice", "s1"); err == nil {
		t.Error("organizer self-follow should be rejected")
	}

	unfollowed, err := svc.Unfollow(context.Background(), "bob", "s1")
	if err != nil {
		t.Fatalf("Unfollow returned error: %v", err)
	}
	if unfollowed.HasFollower("bob") {
		t.Error("bob should be removed from followers")
	}

	// フォローしていないユーザーの解除は拒否される
	if _, err := svc.Unfollow(context.Background(), "carol", "s1"); err == nil {
		t.Error("unfollow without following should be rejected")
	}
}

// --- チャット ---

// TestService_SendMessage はメッセージ投稿、通知の発火、メンバー制限を検証する。
func TestService_SendMessage(t *testing.T) {
	sess := futureSession("s1", "alice")
	sess.Participants = []string{"bob"}
	repo := &mockSessionRepo{sessions: []model.Session{sess}}
	notifier := &mockNotifier{}
	svc := newTestService(repo, testClubs(), notifier)

	msg, err := svc.SendMessage(context.Background(), "bob", "s1", "  19時に現地集合で  ")
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if msg.Text != "19時に現地集合で" {
		t.Errorf("Text = %q, want trimmed text", msg.Text)
	}
	if msg.Sender != "bob" {
		t.Errorf("Sender = %q, want %q", msg.Sender, "bob")
	}
	if len(notifier.chats) != 1 {
		t.Errorf("expected 1 ChatMessage intent, got %d", len(notifier.chats))
	}

	// 非メンバーは投稿できない
	_, err = svc.SendMessage(context.Background(), "stranger", "s1", "参加したいです")
	if err == nil {
		t.Fatal("non-member message should be rejected")
	}
	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrCodeNotMember {
		t.Errorf("error = %v, want code %s", err, model.ErrCodeNotMember)
	}
}

// TestService_SendMessage_EmptyAfterTrim はトリム後に空になる本文が拒否されることを検証する。
func TestService_SendMessage_EmptyAfterTrim(t *testing.T) {
	repo := &mockSessionRepo{sessions: []model.Session{futureSession("s1", "alice")}}
	svc := newTestService(repo, testClubs(), &mockNotifier{})

	_, err := svc.SendMessage(context.Background(), "alice", "s1", "   ")
	if err == nil {
		t.Fatal("whitespace-only message should be rejected")
	}
	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrCodeInvalidMessage {
		t.Errorf("error = %v, want code %s", err, model.ErrCodeInvalidMessage)
	}
}

// TestService_SendMessage_RingTruncation はメッセージ履歴が50件を超えたとき
// 古いものから切り捨てられることを検証する。
func TestService_SendMessage_RingTruncation(t *testing.T) {
	sess := futureSession("s1", "alice")
	for i := 0; i < model.MaxMessages; i++ {
		sess.Messages = append(sess.Messages, model.Message{
			ID:     uuidLike(i),
			Sender: "alice",
			Text:   "old",
		})
	}
	repo := &mockSessionRepo{sessions: []model.Session{sess}}
	svc := newTestService(repo, testClubs(), &mockNotifier{})

	msg, err := svc.SendMessage(context.Background(), "alice", "s1", "newest")
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}

	stored := repo.sessions[0].Messages
	if len(stored) != model.MaxMessages {
		t.Fatalf("message count = %d, want %d", len(stored), model.MaxMessages)
	}
	if stored[len(stored)-1].ID != msg.ID {
		t.Error("newest message should be the last element")
	}
	if stored[0].ID == uuidLike(0) {
		t.Error("oldest message should have been dropped")
	}
}

// uuidLike はテスト用の識別子を生成する。
func uuidLike(i int) string {
	return time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC).Format("20060102150405")
}
