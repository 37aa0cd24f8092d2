// Package revisions keeps per-article history in local git repositories.
package revisions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
)

const (
	contentFile   = "content.json"
	defaultBranch = "main"
)

// Content is the snapshot of an article stored in each commit.
type Content struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Body      string `json:"body"`
	Category  string `json:"category"`
	Published bool   `json:"published"`
}

func FromArticle(a store.Article) Content {
	return Content{
		Title:     a.Title,
		Summary:   a.Summary,
		Body:      a.Body,
		Category:  a.Category,
		Published: a.Published,
	}
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Ensure initializes the article repository with a baseline commit. It is a
// no-op when the repository already exists.
func (s *Service) Ensure(articleID string, initial Content, author string) error {
	path, err := s.repoPath(articleID)
	if err != nil {
		return err
	}
	lock := s.articleLock(articleID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat repo path: %w", err)
	}
	_, err = s.initRepo(path, initial, author, "Import article baseline")
	return err
}

// Commit records content as the newest revision. The repository is created
// on first use. Unchanged content still produces a commit.
func (s *Service) Commit(articleID string, content Content, author, message string) (store.CommitInfo, error) {
	path, err := s.repoPath(articleID)
	if err != nil {
		return store.CommitInfo{}, err
	}
	lock := s.articleLock(articleID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = s.initRepo(path, content, author, message)
		if err != nil {
			return store.CommitInfo{}, err
		}
		head, err := repo.Head()
		if err != nil {
			return store.CommitInfo{}, fmt.Errorf("read head: %w", err)
		}
		return commitInfoAt(repo, head.Hash())
	}
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("open repo: %w", err)
	}

	hash, err := writeAndCommit(repo, content, author, message)
	if err != nil {
		return store.CommitInfo{}, err
	}
	return commitInfoAt(repo, hash)
}

// History lists commits newest first. A missing repository has no history.
func (s *Service) History(articleID string, limit int) ([]store.CommitInfo, error) {
	path, err := s.repoPath(articleID)
	if err != nil {
		return nil, err
	}
	lock := s.articleLock(articleID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return []store.CommitInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("read head: %w", err)
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]store.CommitInfo, 0)
	err = iter.ForEach(func(c *object.Commit) error {
		items = append(items, toCommitInfo(c))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// ContentAt returns the snapshot stored at hash, which may be abbreviated.
func (s *Service) ContentAt(articleID, hash string) (Content, store.CommitInfo, error) {
	path, err := s.repoPath(articleID)
	if err != nil {
		return Content{}, store.CommitInfo{}, err
	}
	lock := s.articleLock(articleID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return Content{}, store.CommitInfo{}, store.ErrNotFound
	}
	if err != nil {
		return Content{}, store.CommitInfo{}, fmt.Errorf("open repo: %w", err)
	}

	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return Content{}, store.CommitInfo{}, err
	}
	c, err := repo.CommitObject(resolved)
	if err != nil {
		return Content{}, store.CommitInfo{}, store.ErrNotFound
	}
	content, err := readContent(c)
	if err != nil {
		return Content{}, store.CommitInfo{}, err
	}
	return content, toCommitInfo(c), nil
}

// Remove deletes the article's repository.
func (s *Service) Remove(articleID string) error {
	path, err := s.repoPath(articleID)
	if err != nil {
		return err
	}
	lock := s.articleLock(articleID)
	lock.Lock()
	defer lock.Unlock()
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove repo: %w", err)
	}
	return nil
}

func (s *Service) repoPath(articleID string) (string, error) {
	if articleID == "" || articleID != filepath.Base(articleID) || strings.HasPrefix(articleID, ".") {
		return "", fmt.Errorf("invalid article id %q", articleID)
	}
	return filepath.Join(s.baseDir, articleID), nil
}

func (s *Service) articleLock(articleID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[articleID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[articleID] = lock
	return lock
}

func (s *Service) initRepo(path string, initial Content, author, message string) (*git.Repository, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err := git.PlainInitWithOptions(path, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(defaultBranch)},
	})
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if _, err := writeAndCommit(repo, initial, author, message); err != nil {
		return nil, err
	}
	return repo, nil
}

func writeAndCommit(repo *git.Repository, content Content, author, message string) (plumbing.Hash, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("open worktree: %w", err)
	}

	payload, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("marshal content: %w", err)
	}
	if err := os.WriteFile(filepath.Join(worktree.Filesystem.Root(), contentFile), append(payload, '\n'), 0o644); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("write %s: %w", contentFile, err)
	}
	if _, err := worktree.Add(contentFile); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("git add content: %w", err)
	}

	if strings.TrimSpace(message) == "" {
		message = "Update article"
	}
	if strings.TrimSpace(author) == "" {
		author = "system"
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  author,
			Email: sanitizeEmail(author) + "@cms.clinic.local",
			When:  time.Now(),
		},
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("commit content: %w", err)
	}
	return hash, nil
}

func commitInfoAt(repo *git.Repository, hash plumbing.Hash) (store.CommitInfo, error) {
	c, err := repo.CommitObject(hash)
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(c), nil
}

func readContent(c *object.Commit) (Content, error) {
	file, err := c.File(contentFile)
	if err != nil {
		return Content{}, fmt.Errorf("load %s from commit: %w", contentFile, err)
	}
	raw, err := file.Contents()
	if err != nil {
		return Content{}, fmt.Errorf("read content: %w", err)
	}
	var content Content
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return Content{}, fmt.Errorf("decode commit content: %w", err)
	}
	return content, nil
}

// Diff lists the fields that differ between two snapshots.
func Diff(from, to Content) []map[string]string {
	pairs := [][3]string{
		{"body", from.Body, to.Body},
		{"category", from.Category, to.Category},
		{"summary", from.Summary, to.Summary},
		{"title", from.Title, to.Title},
	}
	result := make([]map[string]string, 0)
	for _, p := range pairs {
		if p[1] == p[2] {
			continue
		}
		result = append(result, map[string]string{"field": p[0], "before": p[1], "after": p[2]})
	}
	if from.Published != to.Published {
		result = append(result, map[string]string{
			"field":  "published",
			"before": fmt.Sprint(from.Published),
			"after":  fmt.Sprint(to.Published),
		})
	}
	return result
}

func toCommitInfo(c *object.Commit) store.CommitInfo {
	return store.CommitInfo{
		Hash:      c.Hash.String()[:7],
		Message:   strings.TrimSpace(c.Message),
		Author:    c.Author.Name,
		CreatedAt: c.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			out = append(out, r)
		case r == ' ' || r == '-' || r == '_':
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	hash = strings.TrimSpace(hash)
	if len(hash) < 4 {
		return plumbing.ZeroHash, store.ErrNotFound
	}
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, store.ErrNotFound
	}
	return *resolved, nil
}
