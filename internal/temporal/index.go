// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package temporal

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
	"golang.org/x/sync/errgroup"

	"github.com/JudgeZ/semindex/internal/apperr"
	"github.com/JudgeZ/semindex/internal/logging"
	"github.com/JudgeZ/semindex/internal/symbol"
)

// commitWorkerLimit bounds the number of commit batches processed
// concurrently by IndexCommitRange, the blocking-pool boundary every
// git walk crosses.
const commitWorkerLimit = 4

// maxCIEvents is the CI event ring buffer's retention cap.
const maxCIEvents = 1000

// Config governs IndexCommitRange's walk behavior.
type Config struct {
	CommitBatchSize     int
	MaxCommitAgeDays    int
	IncludeMergeCommits bool
}

// DefaultConfig matches the documented defaults.
func DefaultConfig() Config {
	return Config{CommitBatchSize: 100, MaxCommitAgeDays: 90, IncludeMergeCommits: false}
}

// Index is the temporal index: a read-only view over one git
// repository. It owns the in-memory path→versions history and the
// capped CI event ring; it never mutates the repository.
type Index struct {
	repo *gogit.Repository
	cfg  Config

	extractor *symbol.Extractor
	logger    *logging.Logger

	historyMu sync.RWMutex
	history   map[string][]SymbolVersion

	ciMu     sync.RWMutex
	ciEvents []CiEvent
}

// Open opens the repository at repoPath and fails fast if it is not a
// git repository.
func Open(repoPath string, cfg Config, logger *logging.Logger) (*Index, error) {
	repo, err := gogit.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("temporal: %w: %v", apperr.ErrRepositoryNotFound, err)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Index{
		repo:      repo,
		cfg:       cfg,
		extractor: symbol.NewExtractor(),
		logger:    logger,
		history:   make(map[string][]SymbolVersion),
	}, nil
}

// Head returns the repository's current HEAD commit hash.
func (idx *Index) Head() (string, error) {
	head, err := idx.repo.Head()
	if err != nil {
		return "", fmt.Errorf("temporal: head: %w", err)
	}
	return head.Hash().String(), nil
}

// IndexCommitRange walks commits reachable from end (HEAD if empty)
// down to, but excluding, start (the root of history if empty),
// following first-parents unless IncludeMergeCommits is set, and
// appends a SymbolVersion per changed path per commit.
func (idx *Index) IndexCommitRange(ctx context.Context, start, end string) (int, error) {
	commits, err := idx.walkRange(start, end)
	if err != nil {
		return 0, err
	}
	if idx.cfg.MaxCommitAgeDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -idx.cfg.MaxCommitAgeDays)
		var filtered []*object.Commit
		for _, c := range commits {
			if c.Committer.When.After(cutoff) {
				filtered = append(filtered, c)
			}
		}
		commits = filtered
	}

	batchSize := idx.cfg.CommitBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(commitWorkerLimit)

	indexed := 0
	var indexedMu sync.Mutex
	for lo := 0; lo < len(commits); lo += batchSize {
		hi := lo + batchSize
		if hi > len(commits) {
			hi = len(commits)
		}
		batch := commits[lo:hi]
		group.Go(func() error {
			n := idx.processBatch(gctx, batch)
			indexedMu.Lock()
			indexed += n
			indexedMu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return indexed, err
	}
	return indexed, nil
}

// processBatch diffs each commit in batch against its first parent,
// logging and skipping commits whose diff fails rather than aborting.
func (idx *Index) processBatch(ctx context.Context, batch []*object.Commit) int {
	processed := 0
	for _, commit := range batch {
		if ctx.Err() != nil {
			return processed
		}
		if commit.NumParents() == 0 {
			continue
		}
		parent, err := commit.Parent(0)
		if err != nil {
			idx.logger.Warn("temporal: skipping commit, no first parent", "commit", commit.Hash.String(), "error", err)
			continue
		}

		changes, err := idx.diffCommits(parent, commit)
		if err != nil {
			idx.logger.Warn("temporal: skipping commit, diff failed", "commit", commit.Hash.String(), "error", err)
			continue
		}

		idx.historyMu.Lock()
		for _, ch := range changes {
			version := SymbolVersion{
				CommitID:      commit.Hash.String(),
				Timestamp:     commit.Committer.When,
				ChangeType:    ch.changeType,
				Author:        commit.Author.Name,
				CommitMessage: commit.Message,
				PreviousPath:  ch.previousPath,
			}
			idx.history[ch.path] = append(idx.history[ch.path], version)
		}
		idx.historyMu.Unlock()
		processed++
	}
	return processed
}

// GetHistory returns path's recorded versions in the order they were
// appended. Within one commit batch that is walk order (newest first
// when walking from HEAD); batches run concurrently, so the relative
// order of entries from different batches is not defined.
func (idx *Index) GetHistory(path string) []SymbolVersion {
	idx.historyMu.RLock()
	defer idx.historyMu.RUnlock()
	return append([]SymbolVersion(nil), idx.history[path]...)
}

// GetSymbolAtCommit resolves commitID, locates path in its tree, and
// returns a synthetic file-kind StoredFile. Unknown languages still
// return the file with an empty extraction rather than erroring.
func (idx *Index) GetSymbolAtCommit(ctx context.Context, path, commitID string) (*StoredFile, error) {
	commit, err := idx.repo.CommitObject(plumbing.NewHash(commitID))
	if err != nil {
		return nil, fmt.Errorf("temporal: commit %s: %w", commitID, apperr.ErrNotFound)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("temporal: tree for %s: %w", commitID, apperr.ErrBackend)
	}
	file, err := tree.File(path)
	if err != nil {
		return nil, fmt.Errorf("temporal: %s at %s: %w", path, commitID, apperr.ErrNotFound)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("temporal: reading %s: %w", path, apperr.ErrBackend)
	}
	lines, err := file.Lines()
	if err != nil {
		return nil, fmt.Errorf("temporal: counting lines in %s: %w", path, apperr.ErrBackend)
	}

	result := &StoredFile{
		Path:     path,
		Kind:     "File",
		Content:  content,
		EndLine:  len(lines),
		CommitID: commitID,
	}

	lang, ok := symbol.LanguageForPath(path)
	if !ok {
		return result, nil
	}
	result.Language = lang

	extracted, err := idx.extractor.Extract(ctx, []byte(content), lang)
	if err != nil {
		return nil, err
	}
	for _, sym := range extracted {
		result.ExtractedNames = append(result.ExtractedNames, sym.Name)
	}
	return result, nil
}

// Blame returns every line of path's current HEAD revision, keyed by
// 0-based line number, mapped to the author name of the commit that
// last touched it.
func (idx *Index) Blame(path string) (map[int]string, error) {
	head, err := idx.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("temporal: resolving HEAD: %w", apperr.ErrBackend)
	}
	commit, err := idx.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("temporal: HEAD commit: %w", apperr.ErrBackend)
	}

	result, err := gogit.Blame(commit, path)
	if err != nil {
		return nil, fmt.Errorf("temporal: blame %s: %w", path, apperr.ErrNotFound)
	}

	lines := make(map[int]string, len(result.Lines))
	for i, line := range result.Lines {
		lines[i] = line.AuthorName
	}
	return lines, nil
}

// tokenPattern splits a test name on non-alphanumeric boundaries for
// relevance scoring.
var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

// CorrelateCIFailure ranks recently changed paths by how likely they
// are to have caused a test failure. Returns an empty list when
// previousCommitID is absent.
func (idx *Index) CorrelateCIFailure(ctx context.Context, testName, failureMessage, commitID, previousCommitID string) ([]SuspectChange, error) {
	if previousCommitID == "" {
		return nil, nil
	}

	prevCommit, err := idx.repo.CommitObject(plumbing.NewHash(previousCommitID))
	if err != nil {
		return nil, fmt.Errorf("temporal: commit %s: %w", previousCommitID, apperr.ErrNotFound)
	}
	curCommit, err := idx.repo.CommitObject(plumbing.NewHash(commitID))
	if err != nil {
		return nil, fmt.Errorf("temporal: commit %s: %w", commitID, apperr.ErrNotFound)
	}

	changes, err := idx.diffCommits(prevCommit, curCommit)
	if err != nil {
		return nil, err
	}

	tokens := tokenPattern.FindAllString(testName, -1)

	var suspects []SuspectChange
	for _, ch := range changes {
		score := relevanceScore(tokens, ch.path, failureMessage)
		if score <= 0.3 {
			continue
		}

		file, err := idx.GetSymbolAtCommit(ctx, ch.path, commitID)
		if err != nil {
			idx.logger.Warn("temporal: skipping suspect, file unreadable", "path", ch.path, "error", err)
			continue
		}

		suspects = append(suspects, SuspectChange{
			Path:           ch.path,
			Symbol:         *file,
			RelevanceScore: score,
			Reason:         fmt.Sprintf("File %s was modified and may be related to test %s", ch.path, testName),
			ChangeType:     ch.changeType,
		})
	}

	sort.Slice(suspects, func(i, j int) bool {
		return suspects[i].RelevanceScore > suspects[j].RelevanceScore
	})
	return suspects, nil
}

// relevanceScore implements the path-token, message-containment, and
// test/spec-hint heuristic, capped at 1.0.
func relevanceScore(tokens []string, path, failureMessage string) float64 {
	var score float64
	lowerPath := strings.ToLower(path)
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if strings.Contains(lowerPath, strings.ToLower(tok)) {
			score += 0.3
		}
	}
	if failureMessage != "" && strings.Contains(failureMessage, path) {
		score += 0.5
	}
	if strings.Contains(lowerPath, "test") || strings.Contains(lowerPath, "spec") {
		score += 0.2
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// RecordCIEvent appends e to the ring buffer, draining the oldest
// entries once the 1000-event cap is exceeded.
func (idx *Index) RecordCIEvent(e CiEvent) {
	idx.ciMu.Lock()
	defer idx.ciMu.Unlock()

	idx.ciEvents = append(idx.ciEvents, e)
	if excess := len(idx.ciEvents) - maxCIEvents; excess > 0 {
		idx.ciEvents = idx.ciEvents[excess:]
	}
}

// GetCIEventsForCommit filters recorded events by commit id.
func (idx *Index) GetCIEventsForCommit(commitID string) []CiEvent {
	idx.ciMu.RLock()
	defer idx.ciMu.RUnlock()

	var out []CiEvent
	for _, e := range idx.ciEvents {
		if e.CommitID == commitID {
			out = append(out, e)
		}
	}
	return out
}

// walkRange resolves end (HEAD if empty) and collects its ancestor
// commits down to, but excluding, start. Merge commits are followed
// through every parent when IncludeMergeCommits is set; otherwise only
// the first parent is followed.
func (idx *Index) walkRange(start, end string) ([]*object.Commit, error) {
	var endHash plumbing.Hash
	if end != "" {
		endHash = plumbing.NewHash(end)
	} else {
		head, err := idx.repo.Head()
		if err != nil {
			return nil, fmt.Errorf("temporal: resolving HEAD: %w", apperr.ErrBackend)
		}
		endHash = head.Hash()
	}

	endCommit, err := idx.repo.CommitObject(endHash)
	if err != nil {
		return nil, fmt.Errorf("temporal: commit %s: %w", endHash.String(), apperr.ErrNotFound)
	}

	if idx.cfg.IncludeMergeCommits {
		return idx.walkAllParents(endCommit, start)
	}
	return idx.walkFirstParent(endCommit, start)
}

func (idx *Index) walkFirstParent(end *object.Commit, start string) ([]*object.Commit, error) {
	var commits []*object.Commit
	current := end
	for {
		if start != "" && current.Hash.String() == start {
			break
		}
		commits = append(commits, current)
		if current.NumParents() == 0 {
			break
		}
		parent, err := current.Parent(0)
		if err != nil {
			break
		}
		current = parent
	}
	return commits, nil
}

// errStopWalk breaks a CommitIter.ForEach walk once the start boundary
// is reached.
var errStopWalk = errors.New("temporal: stop walk")

func (idx *Index) walkAllParents(end *object.Commit, start string) ([]*object.Commit, error) {
	iter, err := idx.repo.Log(&gogit.LogOptions{From: end.Hash})
	if err != nil {
		return nil, fmt.Errorf("temporal: log: %w", apperr.ErrBackend)
	}
	defer iter.Close()

	var commits []*object.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if start != "" && c.Hash.String() == start {
			return errStopWalk
		}
		commits = append(commits, c)
		return nil
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		return nil, fmt.Errorf("temporal: walking log: %w", apperr.ErrBackend)
	}
	return commits, nil
}

// pathChange is one recognized delta between two trees.
type pathChange struct {
	path         string
	previousPath string
	changeType   ChangeType
}

// diffCommits diffs to's tree against from's, recognizing renames by
// matching a deleted blob's hash against an inserted blob's hash.
func (idx *Index) diffCommits(from, to *object.Commit) ([]pathChange, error) {
	fromTree, err := from.Tree()
	if err != nil {
		return nil, fmt.Errorf("temporal: tree for %s: %w", from.Hash.String(), apperr.ErrBackend)
	}
	toTree, err := to.Tree()
	if err != nil {
		return nil, fmt.Errorf("temporal: tree for %s: %w", to.Hash.String(), apperr.ErrBackend)
	}

	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, fmt.Errorf("temporal: diff %s..%s: %w", from.Hash.String(), to.Hash.String(), apperr.ErrBackend)
	}

	type entry struct {
		name string
		hash plumbing.Hash
	}
	var deletes, inserts []entry
	var modifies []string

	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			continue
		}
		switch action {
		case merkletrie.Insert:
			inserts = append(inserts, entry{name: change.To.Name, hash: change.To.TreeEntry.Hash})
		case merkletrie.Delete:
			deletes = append(deletes, entry{name: change.From.Name, hash: change.From.TreeEntry.Hash})
		case merkletrie.Modify:
			modifies = append(modifies, change.To.Name)
		}
	}

	var result []pathChange
	matchedInserts := make(map[int]bool)
	for _, d := range deletes {
		renamed := false
		for i, ins := range inserts {
			if matchedInserts[i] || ins.hash != d.hash {
				continue
			}
			result = append(result, pathChange{path: ins.name, previousPath: d.name, changeType: ChangeRenamed})
			matchedInserts[i] = true
			renamed = true
			break
		}
		if !renamed {
			result = append(result, pathChange{path: d.name, changeType: ChangeDeleted})
		}
	}
	for i, ins := range inserts {
		if matchedInserts[i] {
			continue
		}
		result = append(result, pathChange{path: ins.name, changeType: ChangeAdded})
	}
	for _, m := range modifies {
		result = append(result, pathChange{path: m, changeType: ChangeModified})
	}
	return result, nil
}
