package inbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
	"github.com/custodia-labs/kbnote/internal/logger"
)

// Ensure Inbox implements the interface.
var _ driven.ItemSource = (*Inbox)(nil)

// SourceRefPrefix prefixes the source reference of every inbox item.
const SourceRefPrefix = "inbox:"

const (
	doneDir   = "done"
	failedDir = "failed"
)

// DefaultSettle is how long a watched file must stay unchanged before it
// is read.
const DefaultSettle = 500 * time.Millisecond

// contentTypes maps file extensions to content types.
var contentTypes = map[string]domain.ContentType{
	".txt":        domain.ContentTypeText,
	".md":         domain.ContentTypeText,
	".url":        domain.ContentTypeURL,
	".transcript": domain.ContentTypeVoiceTranscript,
}

// Config configures an Inbox.
type Config struct {
	// InboxDir receives item files.
	InboxDir string

	// OutboxDir receives notes and failure reasons. Defaults to
	// <InboxDir>/../outbox.
	OutboxDir string

	// Watch keeps the inbox open for new files after the initial scan.
	// Without it Items closes its channels once existing files are sent.
	Watch bool

	// Settle is the quiet period after the last create or write event on
	// a file before it is read in watch mode. Defaults to DefaultSettle.
	Settle time.Duration
}

// Inbox is a driven.ItemSource over a pair of directories.
type Inbox struct {
	cfg Config

	mu       sync.Mutex
	inFlight map[string]string // source ref -> file path
}

// New creates an Inbox, creating its directories if needed.
func New(cfg Config) (*Inbox, error) {
	if cfg.InboxDir == "" {
		return nil, fmt.Errorf("%w: inbox directory is required", domain.ErrInvalidConfig)
	}
	if cfg.OutboxDir == "" {
		cfg.OutboxDir = filepath.Join(filepath.Dir(filepath.Clean(cfg.InboxDir)), "outbox")
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	for _, dir := range []string{
		cfg.InboxDir,
		cfg.OutboxDir,
		filepath.Join(cfg.InboxDir, doneDir),
		filepath.Join(cfg.InboxDir, failedDir),
	} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return &Inbox{
		cfg:      cfg,
		inFlight: make(map[string]string),
	}, nil
}

// Config returns the resolved configuration.
func (b *Inbox) Config() Config {
	return b.cfg
}

// Items scans the inbox and, in watch mode, follows it until ctx is done.
func (b *Inbox) Items(ctx context.Context) (<-chan domain.RawItem, <-chan error) {
	items := make(chan domain.RawItem)
	errs := make(chan error, 16)

	go func() {
		defer close(items)
		defer close(errs)

		var watcher *fsnotify.Watcher
		if b.cfg.Watch {
			// Watch before scanning so files arriving during the scan are seen.
			w, err := fsnotify.NewWatcher()
			if err == nil {
				err = w.Add(b.cfg.InboxDir)
			}
			if err != nil {
				sendErr(ctx, errs, fmt.Errorf("watch inbox: %w", err))
				if w != nil {
					w.Close()
				}
				return
			}
			watcher = w
			defer watcher.Close()
		}

		if !b.scan(ctx, items, errs) || watcher == nil {
			return
		}
		logger.Info("inbox: watching %s", b.cfg.InboxDir)
		b.watch(ctx, watcher, items, errs)
	}()

	return items, errs
}

// scan sends every pending file in name order. It returns false if ctx
// ended first.
func (b *Inbox) scan(ctx context.Context, items chan<- domain.RawItem, errs chan<- error) bool {
	entries, err := os.ReadDir(b.cfg.InboxDir)
	if err != nil {
		sendErr(ctx, errs, fmt.Errorf("scan inbox: %w", err))
		return ctx.Err() == nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if !b.offer(ctx, filepath.Join(b.cfg.InboxDir, name), items, errs) {
			return false
		}
	}
	return true
}

// watch offers a file once it has had no create or write event for the
// settle period, so files still being written are not read early.
func (b *Inbox) watch(ctx context.Context, watcher *fsnotify.Watcher, items chan<- domain.RawItem, errs chan<- error) {
	settled := make(chan string)
	pending := make(map[string]*time.Timer)
	defer func() {
		for _, timer := range pending {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case path := <-settled:
			delete(pending, path)
			if !b.offer(ctx, path, items, errs) {
				return
			}
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			// Only files directly inside the inbox.
			if filepath.Dir(event.Name) != filepath.Clean(b.cfg.InboxDir) {
				continue
			}
			if timer, ok := pending[event.Name]; ok {
				timer.Reset(b.cfg.Settle)
				continue
			}
			path := event.Name
			pending[path] = time.AfterFunc(b.cfg.Settle, func() {
				select {
				case settled <- path:
				case <-ctx.Done():
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			sendErr(ctx, errs, fmt.Errorf("watch inbox: %w", err))
		}
	}
}

// offer reads one file and sends it unless it is ignored, empty or already
// in flight. It returns false if ctx ended first.
func (b *Inbox) offer(ctx context.Context, path string, items chan<- domain.RawItem, errs chan<- error) bool {
	name := filepath.Base(path)
	contentType, ok := contentTypeFor(name)
	if !ok {
		return true
	}

	ref := SourceRefPrefix + name
	b.mu.Lock()
	_, busy := b.inFlight[ref]
	b.mu.Unlock()
	if busy {
		return true
	}

	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			sendErr(ctx, errs, fmt.Errorf("stat %s: %w", name, err))
		}
		return ctx.Err() == nil
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		sendErr(ctx, errs, fmt.Errorf("read %s: %w", name, err))
		return ctx.Err() == nil
	}

	b.mu.Lock()
	if _, busy := b.inFlight[ref]; busy {
		b.mu.Unlock()
		return true
	}
	b.inFlight[ref] = path
	b.mu.Unlock()

	item := domain.RawItem{
		Content:     string(data),
		ContentType: contentType,
		CreatedAt:   info.ModTime(),
		SourceRef:   ref,
	}
	select {
	case items <- item:
		logger.Debug("inbox: received %s (%s)", name, contentType)
		return true
	case <-ctx.Done():
		b.release(ref)
		return false
	}
}

// Reply writes the outcome to the outbox and moves the source file out of
// the inbox.
func (b *Inbox) Reply(_ context.Context, outcome driven.ItemOutcome) error {
	ref := outcome.Item.SourceRef
	b.mu.Lock()
	path, ok := b.inFlight[ref]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no inbox item %q", domain.ErrNotFound, ref)
	}
	defer b.release(ref)

	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	var (
		outPath string
		content string
		target  string
	)
	if outcome.Succeeded() {
		outPath = filepath.Join(b.cfg.OutboxDir, stem+".md")
		content = outcome.Rendered
		target = doneDir
	} else {
		outPath = filepath.Join(b.cfg.OutboxDir, stem+".error.txt")
		content = outcome.Reason + "\n"
		target = failedDir
	}

	if err := writeFileAtomic(outPath, []byte(content)); err != nil {
		return fmt.Errorf("write reply for %s: %w", name, err)
	}
	if err := os.Rename(path, filepath.Join(b.cfg.InboxDir, target, name)); err != nil {
		return fmt.Errorf("move %s: %w", name, err)
	}
	return nil
}

func (b *Inbox) release(ref string) {
	b.mu.Lock()
	delete(b.inFlight, ref)
	b.mu.Unlock()
}

// contentTypeFor returns the content type of an inbox file name. Hidden
// and unknown files are ignored.
func contentTypeFor(name string) (domain.ContentType, bool) {
	if strings.HasPrefix(name, ".") {
		return "", false
	}
	ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]
	return ct, ok
}

// writeFileAtomic writes through a temporary file so readers of the outbox
// never see a partial reply.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".reply-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func sendErr(ctx context.Context, errs chan<- error, err error) {
	select {
	case errs <- err:
	case <-ctx.Done():
	}
}
