// Package store はJSON配列ファイルを単位とする永続化プリミティブを提供する。
// 一時ファイルへの書き込みとrenameによるアトミック置換、ミラーバックアップ、
// プロセス内キャッシュ、コレクション単位の直列化を担う。
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// BackupSuffix はバックアップファイルの拡張子。
const BackupSuffix = ".bak"

// CorruptionError は主ファイルとバックアップの両方が読み取れない状態を表す。
// この状態ではデータを捏造せず、操作を失敗させる。
type CorruptionError struct {
	Path string
	Err  error
}

// Error はerrorインターフェースを実装する。
func (e *CorruptionError) Error() string {
	return fmt.Sprintf("storage corrupted: %s: %v", e.Path, e.Err)
}

// Unwrap はラップした原因エラーを返す。
func (e *CorruptionError) Unwrap() error {
	return e.Err
}

// Store は1つのJSON配列ファイルとそのバックアップを所有する読み書きプリミティブ。
// mutexがコレクション単位のread-modify-writeを直列化する。
// 別コレクションを扱うStore同士は互いに独立して進行できる。
type Store[T any] struct {
	path       string
	backupPath string

	mu     sync.Mutex
	cache  []T
	cached bool

	onRecover func()
}

// New は指定パスのStoreを生成する。バックアップは同名に".bak"を付けたパスになる。
func New[T any](path string) *Store[T] {
	return &Store[T]{
		path:       path,
		backupPath: path + BackupSuffix,
	}
}

// Path は主ファイルのパスを返す。
func (s *Store[T]) Path() string {
	return s.path
}

// SetRecoveryHook はバックアップからの復旧成功時に呼ばれるフックを設定する。
// メトリクス収集用。Store利用開始前に設定すること。
func (s *Store[T]) SetRecoveryHook(fn func()) {
	s.onRecover = fn
}

// Load はコレクション全体を返す。
// キャッシュがある場合はディスクI/Oを行わない。
// 主ファイルが存在しない場合は空リストをシードして返す。
// 主ファイルが壊れている場合はバックアップから復旧する。
func (s *Store[T]) Load(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	return slices.Clone(list), nil
}

// Save はコレクション全体を書き込む。部分更新は行わない。
func (s *Store[T]) Save(ctx context.Context, list []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked(list)
}

// Update はread-modify-writeをロック下で1回実行する。
// fnが返したリストを永続化し、そのリストを返す。
// fnがエラーを返した場合は何も書き込まず、変更前の状態を維持する。
// fnが変更不要を示すためnilリストとnilエラーを返した場合も書き込みを行わない。
func (s *Store[T]) Update(ctx context.Context, fn func(list []T) ([]T, error)) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadLocked()
	if err != nil {
		return nil, err
	}

	updated, err := fn(slices.Clone(current))
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return slices.Clone(current), nil
	}

	if err := s.saveLocked(updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// loadLocked はキャッシュまたはディスクからコレクションを読み込む。
// 呼び出し側がロックを保持していること。
func (s *Store[T]) loadLocked() ([]T, error) {
	if s.cached {
		return s.cache, nil
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		// 初回起動: 空リストをシードする
		empty := []T{}
		if err := s.saveLocked(empty); err != nil {
			return nil, err
		}
		return s.cache, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ファイルの読み込みに失敗しました: %s: %w", s.path, err)
	}

	var list []T
	if err := json.Unmarshal(data, &list); err != nil {
		return s.recoverLocked(err)
	}

	s.cache = list
	s.cached = true
	return s.cache, nil
}

// recoverLocked はバックアップからの復旧を試みる。
// 復旧に成功した場合はベストエフォートで主ファイルを復元する。
// バックアップも無効または存在しない場合はCorruptionErrorを返す。
func (s *Store[T]) recoverLocked(cause error) ([]T, error) {
	slog.Warn("主ファイルの解析に失敗したためバックアップから復旧します",
		slog.String("path", s.path),
		slog.String("error", cause.Error()),
	)

	data, err := os.ReadFile(s.backupPath)
	if err != nil {
		return nil, &CorruptionError{Path: s.path, Err: cause}
	}

	var list []T
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, &CorruptionError{Path: s.path, Err: cause}
	}

	// ベストエフォートで主ファイルを復元
	if err := atomicWrite(s.path, data); err != nil {
		slog.Warn("バックアップからの主ファイル復元に失敗しました",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
	}

	slog.Info("バックアップからの復旧に成功しました",
		slog.String("path", s.backupPath),
		slog.Int("records", len(list)),
	)

	if s.onRecover != nil {
		s.onRecover()
	}

	s.cache = list
	s.cached = true
	return s.cache, nil
}

// saveLocked はコレクションを主ファイルとバックアップに書き込む。
// 主ファイルへの書き込み成功後にキャッシュを更新する。
// バックアップへのミラー書き込みはベストエフォートで、失敗してもエラーにしない。
// 呼び出し側がロックを保持していること。
func (s *Store[T]) saveLocked(list []T) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("シリアライズに失敗しました: %w", err)
	}

	if err := atomicWrite(s.path, data); err != nil {
		return fmt.Errorf("ファイルの書き込みに失敗しました: %s: %w", s.path, err)
	}

	s.cache = list
	s.cached = true

	if err := atomicWrite(s.backupPath, data); err != nil {
		slog.Warn("バックアップの書き込みに失敗しました",
			slog.String("path", s.backupPath),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// atomicWrite は同一ディレクトリ内の一時ファイルに書き込み、
// fsync後にrenameで対象パスへ置換する。
// renameは同一ファイルシステム上でアトミックなため、
// 読み手が書きかけのファイルを観測することはない。
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}

	// ディレクトリのfsyncはベストエフォート
	if d, err := os.Open(dir); err == nil {
		d.Sync()
		d.Close()
	}

	return nil
}
