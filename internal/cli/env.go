package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/Brehove/canvas-cli-for-codex/internal/canvas"
	"github.com/Brehove/canvas-cli-for-codex/internal/codec"
	"github.com/Brehove/canvas-cli-for-codex/internal/config"
	"github.com/Brehove/canvas-cli-for-codex/internal/document"
	"github.com/Brehove/canvas-cli-for-codex/internal/faults"
	"github.com/Brehove/canvas-cli-for-codex/internal/httpx"
	"github.com/Brehove/canvas-cli-for-codex/internal/logging"
	"github.com/Brehove/canvas-cli-for-codex/internal/model"
	"github.com/Brehove/canvas-cli-for-codex/internal/pull"
	"github.com/Brehove/canvas-cli-for-codex/internal/push"
	"github.com/Brehove/canvas-cli-for-codex/internal/ui"
	"github.com/Brehove/canvas-cli-for-codex/internal/ui/tui"
	"github.com/Brehove/canvas-cli-for-codex/internal/util"
)

// Client is everything the commands need from Canvas.
type Client interface {
	pull.Source
	push.Remote
	Courses(ctx context.Context) ([]model.Course, error)
	AttachRubric(ctx context.Context, course, rubric, assignment int64, useForGrading bool) error
}

// env holds the process dependencies of the commands.
type env struct {
	stdout io.Writer
	stdin  io.Reader

	// wd returns the directory commands resolve paths and config from.
	wd func() (string, error)

	newClient func(cfg *config.Config) (Client, error)

	// interactive reports whether prompts and the picker may be used.
	interactive func() bool

	// pick asks the user to choose among several matching courses. It
	// returns false when the user declined.
	pick func(title string, courses []model.Course) (model.Course, bool, error)

	// secret reads a value without echo.
	secret func(prompt string) (string, error)
}

func defaultEnv() *env {
	return &env{
		stdout:    os.Stdout,
		stdin:     os.Stdin,
		wd:        os.Getwd,
		newClient: newCanvasClient,
		interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		},
		pick: func(title string, courses []model.Course) (model.Course, bool, error) {
			res, err := tui.RunCoursePicker(title, courses)
			if err != nil {
				return model.Course{}, false, err
			}
			return res.Course, res.Action == tui.CoursePickerActionSelect, nil
		},
		secret: func(prompt string) (string, error) {
			fmt.Fprint(os.Stderr, prompt)
			b, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			return string(b), err
		},
	}
}

func newCanvasClient(cfg *config.Config) (Client, error) {
	retry := httpx.DefaultRetryConfig()
	if cfg.HTTP.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.HTTP.MaxAttempts
	}
	c, err := canvas.New(canvas.Options{
		BaseURL:    cfg.CanvasURL,
		Token:      cfg.APIToken,
		RateLimit:  cfg.HTTP.RateLimit,
		HTTPClient: &http.Client{Timeout: cfg.HTTP.Timeout},
		Retry:      retry,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (e *env) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(e.stdout, format, args...)
}

func (e *env) println(args ...any) {
	_, _ = fmt.Fprintln(e.stdout, args...)
}

// session is a loaded config and a client built from it.
type session struct {
	cfg    *config.Config
	client Client
	wd     string
}

// connect loads the config above the working directory and builds a client.
func (e *env) connect() (*session, error) {
	wd, err := e.wd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(wd)
	if err != nil {
		return nil, err
	}
	if err := ui.SetColorMode(cfg.Output.Color); err != nil {
		logging.Warn("ignoring output.color", logging.Err(err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Path, err)
	}
	client, err := e.newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, client: client, wd: wd}, nil
}

// abs resolves path against the working directory.
func (s *session) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.wd, path)
}

// courseDir returns the pulled course folder containing the working
// directory, or "".
func (s *session) courseDir() string {
	descriptor := util.FindUp(s.wd, codec.CourseFile)
	if descriptor == "" {
		return ""
	}
	return filepath.Dir(descriptor)
}

// resolveCourse turns a course argument into a course. A number is a course
// id; anything else is matched against course names and codes. With no
// argument the course folder around the working directory is used.
func (e *env) resolveCourse(ctx context.Context, s *session, arg string) (model.Course, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		dir := s.courseDir()
		if dir == "" {
			return model.Course{}, faults.Invalid("course", "a course id or name is required outside a pulled course folder")
		}
		doc, err := document.Load(filepath.Join(dir, codec.CourseFile))
		if err != nil {
			return model.Course{}, err
		}
		c, err := codec.EncodeCourse(doc)
		if err != nil {
			return model.Course{}, err
		}
		return *c, nil
	}

	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return s.client.Course(ctx, id)
	}

	courses, err := s.client.Courses(ctx)
	if err != nil {
		return model.Course{}, fmt.Errorf("failed to list courses: %w", err)
	}
	needle := strings.ToLower(arg)
	var matches []model.Course
	for _, c := range courses {
		if strings.Contains(strings.ToLower(c.Name), needle) || strings.Contains(strings.ToLower(c.Code), needle) {
			matches = append(matches, c)
		}
	}

	switch {
	case len(matches) == 0:
		return model.Course{}, faults.NotFound("no course matching %q", arg)
	case len(matches) == 1:
		return matches[0], nil
	case e.interactive():
		c, ok, err := e.pick(fmt.Sprintf("%d courses match %q", len(matches), arg), matches)
		if err != nil {
			return model.Course{}, err
		}
		if !ok {
			return model.Course{}, faults.Invalid("course", "no course selected")
		}
		return c, nil
	default:
		names := make([]string, 0, len(matches))
		for _, c := range matches {
			names = append(names, fmt.Sprintf("%d %s", c.ID, c.Name))
		}
		return model.Course{}, faults.Invalid("course", "%q matches %d courses; pass an id: %s", arg, len(matches), strings.Join(names, "; "))
	}
}

// readLine prompts for one line of input.
func (e *env) readLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(e.stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
