package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strconv"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"flipnote.app/cli/internal/application/cache"
	apphttp "flipnote.app/cli/internal/application/http"
	"flipnote.app/cli/internal/core/domain"
)

const (
	quizzesPath       = "/quizzes"
	publicQuizzesPath = "/quizzes/public"
	historyPath       = "/quizzes/history"
	searchPath        = "/quiz/search"
	questionsPath     = "/questions"
	extractPath       = "/extract-questions"
)

// QuizService is the typed facade over the quiz endpoints. Reads go through
// the response cache; writes go straight to the backend and invalidate the
// namespaces they touch.
type QuizService struct {
	client *apphttp.BackendClient
	cache  *cache.ResponseCache
	logger hclog.Logger
}

// NewQuizService creates the quiz facade
func NewQuizService(client *apphttp.BackendClient, responseCache *cache.ResponseCache, logger hclog.Logger) *QuizService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &QuizService{client: client, cache: responseCache, logger: logger.Named("quiz")}
}

// ListMine returns one page of the current user's quizzes.
func (s *QuizService) ListMine(ctx context.Context, p domain.Pagination) (domain.QuizPage, error) {
	return s.listPage(ctx, "mine", quizzesPath, p, false)
}

// ListPublic returns one page of public quizzes. It needs no session.
func (s *QuizService) ListPublic(ctx context.Context, p domain.Pagination) (domain.QuizPage, error) {
	return s.listPage(ctx, "public", publicQuizzesPath, p, true)
}

func (s *QuizService) listPage(ctx context.Context, name, path string, p domain.Pagination, public bool) (domain.QuizPage, error) {
	p = p.Normalize()
	query := url.Values{
		"page":      {strconv.Itoa(p.Page)},
		"page_size": {strconv.Itoa(p.PageSize)},
	}
	return readThrough(ctx, s, cache.CollectionKey(name, query), func(ctx context.Context) (domain.QuizPage, error) {
		var w wirePage
		if err := s.client.DoJSON(ctx, apphttp.Request{Method: "GET", Path: path, Query: query, Public: public}, &w); err != nil {
			return domain.QuizPage{}, err
		}
		return normalizePage(w), nil
	})
}

// Search returns the quizzes matching term.
func (s *QuizService) Search(ctx context.Context, term string) ([]domain.Quiz, error) {
	query := url.Values{"q": {term}}
	return readThrough(ctx, s, cache.CollectionKey("search", query), func(ctx context.Context) ([]domain.Quiz, error) {
		var ws []wireQuiz
		if err := s.client.DoJSON(ctx, apphttp.Request{Method: "GET", Path: searchPath, Query: query}, &ws); err != nil {
			return nil, err
		}
		return normalizeQuizzes(ws), nil
	})
}

// History returns the recently accessed quizzes. It is always fetched fresh.
func (s *QuizService) History(ctx context.Context) ([]domain.Quiz, error) {
	return readThrough(ctx, s, cache.HistoryKey, func(ctx context.Context) ([]domain.Quiz, error) {
		var ws []wireQuiz
		if err := s.client.DoJSON(ctx, apphttp.Request{Method: "GET", Path: historyPath}, &ws); err != nil {
			return nil, err
		}
		return normalizeQuizzes(ws), nil
	})
}

// Get returns a quiz with its questions. The quiz and its question set are
// fetched concurrently and combined.
func (s *QuizService) Get(ctx context.Context, id string) (domain.Quiz, error) {
	if id == "" {
		return domain.Quiz{}, fmt.Errorf("quiz id is required")
	}
	return readThrough(ctx, s, cache.DetailKey(id), func(ctx context.Context) (domain.Quiz, error) {
		var (
			wq   wireQuiz
			wset wireQuestionSet
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return s.client.DoJSON(gctx, apphttp.Request{Method: "GET", Path: quizPath(id)}, &wq)
		})
		g.Go(func() error {
			return s.client.DoJSON(gctx, apphttp.Request{Method: "GET", Path: questionsPath + "/" + id}, &wset)
		})
		if err := g.Wait(); err != nil {
			return domain.Quiz{}, err
		}

		quiz := normalizeQuiz(wq)
		if quiz.ID == "" {
			quiz.ID = id
		}
		quiz.Questions = normalizeQuestionSet(wset)
		return quiz, nil
	})
}

// Create creates a quiz owned by the current user.
func (s *QuizService) Create(ctx context.Context, draft domain.QuizDraft) (domain.Quiz, error) {
	if err := draft.Validate(); err != nil {
		return domain.Quiz{}, err
	}

	var w wireQuiz
	err := s.client.DoJSON(ctx, apphttp.Request{
		Method: "POST",
		Path:   quizzesPath,
		JSON:   wireQuizCreate{Title: draft.Title, Description: draft.Description, IsPublic: draft.IsPublic},
	}, &w)
	if err != nil {
		return domain.Quiz{}, err
	}

	s.cache.Invalidate(ctx, cache.QuizzesPrefix)
	return normalizeQuiz(w), nil
}

// Update applies a partial change to a quiz.
func (s *QuizService) Update(ctx context.Context, id string, patch domain.QuizPatch) (domain.Quiz, error) {
	if patch.Empty() {
		return domain.Quiz{}, fmt.Errorf("nothing to update")
	}

	var w wireQuiz
	err := s.client.DoJSON(ctx, apphttp.Request{
		Method: "PUT",
		Path:   quizPath(id),
		JSON:   wireQuizPatch{Title: patch.Title, Description: patch.Description, IsPublic: patch.IsPublic},
	}, &w)
	if err != nil {
		return domain.Quiz{}, err
	}

	s.invalidateQuiz(ctx, id)
	quiz := normalizeQuiz(w)
	if quiz.ID == "" {
		quiz.ID = id
	}
	return quiz, nil
}

// Delete removes a quiz.
func (s *QuizService) Delete(ctx context.Context, id string) error {
	if _, err := s.client.Do(ctx, apphttp.Request{Method: "DELETE", Path: quizPath(id)}); err != nil {
		return err
	}
	s.invalidateQuiz(ctx, id)
	return nil
}

// AddQuestion appends q to a quiz and returns the stored question.
func (s *QuizService) AddQuestion(ctx context.Context, quizID string, q domain.Question) (domain.Question, error) {
	body, err := denormalizeQuestion(q)
	if err != nil {
		return domain.Question{}, err
	}

	resp, err := s.client.Do(ctx, apphttp.Request{Method: "POST", Path: quizPath(quizID) + "/questions", JSON: body})
	if err != nil {
		return domain.Question{}, err
	}

	s.cache.Invalidate(ctx, cache.ItemPrefix(quizID))
	return storedQuestion(resp.Body, q), nil
}

// UpdateQuestion replaces the question identified by q.ID and q.Kind.
func (s *QuizService) UpdateQuestion(ctx context.Context, quizID string, q domain.Question) (domain.Question, error) {
	if q.ID == "" {
		return domain.Question{}, fmt.Errorf("question id is required")
	}
	body, err := denormalizeQuestion(q)
	if err != nil {
		return domain.Question{}, err
	}

	resp, err := s.client.Do(ctx, apphttp.Request{Method: "PUT", Path: questionPath(quizID, q.ID, q.Kind), JSON: body})
	if err != nil {
		return domain.Question{}, err
	}

	s.cache.Invalidate(ctx, cache.ItemPrefix(quizID))
	return storedQuestion(resp.Body, q), nil
}

// DeleteQuestion removes a question. The kind selects the backend table.
func (s *QuizService) DeleteQuestion(ctx context.Context, quizID, questionID string, kind domain.QuestionKind) error {
	if questionID == "" {
		return fmt.Errorf("question id is required")
	}
	if _, err := s.client.Do(ctx, apphttp.Request{Method: "DELETE", Path: questionPath(quizID, questionID, kind)}); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.ItemPrefix(quizID))
	return nil
}

// ExtractFromText asks the backend to generate draft questions from text.
// Drafts are not saved; add them with AddQuestion.
func (s *QuizService) ExtractFromText(ctx context.Context, quizID, text string) ([]domain.Question, error) {
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}
	return s.extract(ctx, quizID, "text", func(w *multipart.Writer) error {
		return w.WriteField("text", text)
	})
}

// ExtractFromPDF uploads a PDF and returns the draft questions found in it.
func (s *QuizService) ExtractFromPDF(ctx context.Context, quizID, filename string, r io.Reader) ([]domain.Question, error) {
	return s.extract(ctx, quizID, "pdf", func(w *multipart.Writer) error {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			return err
		}
		_, err = io.Copy(part, r)
		return err
	})
}

func (s *QuizService) extract(ctx context.Context, quizID, kind string, writeSource func(*multipart.Writer) error) ([]domain.Question, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := writeSource(mw); err != nil {
		return nil, fmt.Errorf("failed to build extraction form: %w", err)
	}
	if err := mw.WriteField("quizId", quizID); err != nil {
		return nil, fmt.Errorf("failed to build extraction form: %w", err)
	}
	if err := mw.WriteField("type", kind); err != nil {
		return nil, fmt.Errorf("failed to build extraction form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build extraction form: %w", err)
	}

	var w wireExtraction
	err := s.client.DoJSON(ctx, apphttp.Request{
		Method:      "POST",
		Path:        extractPath,
		Body:        buf.Bytes(),
		ContentType: mw.FormDataContentType(),
	}, &w)
	if err != nil {
		return nil, err
	}

	drafts := normalizeExtraction(w)
	s.logger.Debug("questions extracted", "quiz", quizID, "source", kind, "count", len(drafts))
	return drafts, nil
}

func (s *QuizService) invalidateQuiz(ctx context.Context, id string) {
	s.cache.Invalidate(ctx, cache.QuizzesPrefix)
	s.cache.Invalidate(ctx, cache.ItemPrefix(id))
}

// readThrough serves key from the cache or fills it from fetch. Cached
// values are JSON, so every hit decodes a copy the caller owns. An entry
// that no longer decodes is treated as a miss.
func readThrough[T any](ctx context.Context, s *QuizService, key string, fetch func(context.Context) (T, error)) (T, error) {
	if data, ok := s.cache.Get(ctx, key); ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		s.logger.Warn("discarding undecodable cache entry", "key", key)
	}

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}

	if data, err := json.Marshal(v); err == nil {
		s.cache.Set(ctx, key, data)
	}
	return v, nil
}

// storedQuestion prefers the backend's echo of a written question and
// falls back to what was sent when the response carries no id.
func storedQuestion(body []byte, sent domain.Question) domain.Question {
	var w wireQuestion
	if len(body) == 0 || json.Unmarshal(body, &w) != nil || w.ID == "" {
		return sent
	}
	q := normalizeQuestion(w)
	if q.Text == "" {
		q.Text = sent.Text
	}
	if q.Kind == domain.QuestionWritten && sent.Kind == domain.QuestionMCQ {
		q.Kind, q.Options, q.Answer = sent.Kind, sent.Options, sent.Answer
	}
	return q
}

func quizPath(id string) string {
	return quizzesPath + "/" + id
}

func questionPath(quizID, questionID string, kind domain.QuestionKind) string {
	return quizPath(quizID) + "/questions/" + questionID + "/" + string(kind)
}
