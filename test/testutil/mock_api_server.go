package testutil

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultEmail    = "ada@example.com"
	DefaultPassword = "correct horse"
)

var jwtSecret = []byte("fake-backend-secret")

// MockAPIServer is an in-memory stand-in for the quiz backend
type MockAPIServer struct {
	*httptest.Server
	Config MockAPIConfig

	mu             sync.Mutex
	requestLog     []RequestInfo
	validAccess    map[string]bool
	validRefresh   map[string]bool
	tokenSeq       int
	refreshCount   int
	quizzes        map[int]*FakeQuiz
	questions      map[int]*FakeQuestion
	history        []int
	nextID         int
	lastExtraction *ExtractionRequest
}

// MockAPIConfig contains all configuration options for the mock server
type MockAPIConfig struct {
	User     UserInfo
	Password string

	// Behavior settings
	RefreshDelay          time.Duration
	RefreshFails          bool
	AlwaysUnauthorized    bool
	RegisterReturnsTokens bool
	// AccessTTL switches access tokens to HS256 JWTs expiring after the TTL
	AccessTTL time.Duration

	ExtractResponse gin.H
}

// UserInfo is the profile the backend returns
type UserInfo struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// FakeQuiz is a stored quiz
type FakeQuiz struct {
	ID           int
	Title        string
	Description  string
	IsPublic     bool
	Owner        string
	CreatedAt    time.Time
	LastAccessed time.Time
}

// FakeQuestion is a stored question
type FakeQuestion struct {
	ID            int
	QuizID        int
	Type          string
	Text          string
	Choices       []string
	CorrectAnswer string
	Answer        string
}

// ExtractionRequest captures the multipart fields of the last extraction call
type ExtractionRequest struct {
	Type     string
	QuizID   string
	Text     string
	FileName string
	FileData []byte
}

// RequestInfo captures information about each request for test assertions
type RequestInfo struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	Headers       http.Header
	Body          []byte
	Timestamp     time.Time
	QueryParams   map[string][]string
}

// MockAPIServerBuilder provides a fluent interface for configuring the mock server
type MockAPIServerBuilder struct {
	t       *testing.T
	config  MockAPIConfig
	quizzes []FakeQuiz
	qs      []FakeQuestion
}

// NewMockAPIServer creates a new mock API server builder
func NewMockAPIServer(t *testing.T) *MockAPIServerBuilder {
	return &MockAPIServerBuilder{
		t: t,
		config: MockAPIConfig{
			User: UserInfo{
				Email:     DefaultEmail,
				FirstName: "Ada",
				LastName:  "Lovelace",
				Username:  "ada",
			},
			Password: DefaultPassword,
			ExtractResponse: gin.H{
				"mcq": []gin.H{
					{"text": "What is 2+2?", "options": []string{"3", "4", "5"}, "answer": "4"},
				},
				"written": []gin.H{
					{"text": "Name the first programmer", "answer": "Ada Lovelace"},
				},
			},
		},
	}
}

// WithUser sets the account that can log in
func (b *MockAPIServerBuilder) WithUser(user UserInfo, password string) *MockAPIServerBuilder {
	b.config.User = user
	b.config.Password = password
	return b
}

// WithRefreshDelay holds every refresh response for d
func (b *MockAPIServerBuilder) WithRefreshDelay(d time.Duration) *MockAPIServerBuilder {
	b.config.RefreshDelay = d
	return b
}

// WithRefreshFailure makes every refresh call fail with 401
func (b *MockAPIServerBuilder) WithRefreshFailure() *MockAPIServerBuilder {
	b.config.RefreshFails = true
	return b
}

// WithAlwaysUnauthorized rejects every authenticated request, even with fresh tokens
func (b *MockAPIServerBuilder) WithAlwaysUnauthorized() *MockAPIServerBuilder {
	b.config.AlwaysUnauthorized = true
	return b
}

// WithRegisterTokens makes registration return a token pair
func (b *MockAPIServerBuilder) WithRegisterTokens() *MockAPIServerBuilder {
	b.config.RegisterReturnsTokens = true
	return b
}

// WithJWTAccessTokens issues JWT access tokens expiring after ttl
func (b *MockAPIServerBuilder) WithJWTAccessTokens(ttl time.Duration) *MockAPIServerBuilder {
	b.config.AccessTTL = ttl
	return b
}

// WithExtractResponse sets the body returned by the extraction endpoint
func (b *MockAPIServerBuilder) WithExtractResponse(body gin.H) *MockAPIServerBuilder {
	b.config.ExtractResponse = body
	return b
}

// WithQuiz seeds a quiz; a zero ID is assigned automatically
func (b *MockAPIServerBuilder) WithQuiz(q FakeQuiz) *MockAPIServerBuilder {
	b.quizzes = append(b.quizzes, q)
	return b
}

// WithQuestion seeds a question
func (b *MockAPIServerBuilder) WithQuestion(q FakeQuestion) *MockAPIServerBuilder {
	b.qs = append(b.qs, q)
	return b
}

// Build starts the server; it is closed when the test ends
func (b *MockAPIServerBuilder) Build() *MockAPIServer {
	gin.SetMode(gin.TestMode)

	mock := &MockAPIServer{
		Config:       b.config,
		validAccess:  map[string]bool{},
		validRefresh: map[string]bool{},
		quizzes:      map[int]*FakeQuiz{},
		questions:    map[int]*FakeQuestion{},
		nextID:       1,
	}
	for _, q := range b.quizzes {
		q := q
		if q.ID == 0 {
			q.ID = mock.allocID()
		} else if q.ID >= mock.nextID {
			mock.nextID = q.ID + 1
		}
		if q.Owner == "" {
			q.Owner = b.config.User.Username
		}
		if q.CreatedAt.IsZero() {
			q.CreatedAt = baseTime.Add(time.Duration(q.ID) * time.Hour)
		}
		mock.quizzes[q.ID] = &q
	}
	for _, q := range b.qs {
		q := q
		if q.ID == 0 {
			q.ID = mock.allocID()
		} else if q.ID >= mock.nextID {
			mock.nextID = q.ID + 1
		}
		mock.questions[q.ID] = &q
	}

	mock.Server = httptest.NewServer(mock.routes())
	if b.t != nil {
		b.t.Cleanup(mock.Close)
	}
	return mock
}

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func (m *MockAPIServer) routes() *gin.Engine {
	r := gin.New()
	r.Use(m.logRequest)

	r.POST("/auth/login/", m.handleLogin)
	r.POST("/auth/register/", m.handleRegister)
	r.POST("/auth/token/refresh/", m.handleRefresh)
	r.GET("/auth/profile/", m.requireAuth, m.handleProfile)

	r.GET("/quizzes", m.requireAuth, m.handleListMine)
	r.POST("/quizzes", m.requireAuth, m.handleCreateQuiz)
	r.GET("/quizzes/public", m.handleListPublic)
	r.GET("/quizzes/history", m.requireAuth, m.handleHistory)
	r.GET("/quizzes/:id", m.optionalAuth, m.handleGetQuiz)
	r.PUT("/quizzes/:id", m.requireAuth, m.handleUpdateQuiz)
	r.DELETE("/quizzes/:id", m.requireAuth, m.handleDeleteQuiz)
	r.POST("/quizzes/:id/questions", m.requireAuth, m.handleCreateQuestion)
	r.PUT("/quizzes/:id/questions/:qid/:kind", m.requireAuth, m.handleUpdateQuestion)
	r.DELETE("/quizzes/:id/questions/:qid/:kind", m.requireAuth, m.handleDeleteQuestion)
	r.GET("/questions/:id", m.optionalAuth, m.handleQuestions)
	r.GET("/quiz/search", m.requireAuth, m.handleSearch)
	r.POST("/extract-questions", m.requireAuth, m.handleExtract)

	return r
}

// Token management

// IssueTokens creates a valid token pair without a login request
func (m *MockAPIServer) IssueTokens() (access, refresh string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.issueAccessLocked(), m.issueRefreshLocked()
}

// ExpireAccessTokens invalidates every access token issued so far
func (m *MockAPIServer) ExpireAccessTokens() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validAccess = map[string]bool{}
}

// SetRefreshFailure toggles refresh failures at runtime
func (m *MockAPIServer) SetRefreshFailure(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Config.RefreshFails = fail
}

// RefreshCount returns how many refresh calls reached the server
func (m *MockAPIServer) RefreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshCount
}

// IsAccessValid reports whether token would be accepted
func (m *MockAPIServer) IsAccessValid(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validAccess[token]
}

func (m *MockAPIServer) issueAccessLocked() string {
	m.tokenSeq++
	token := fmt.Sprintf("access-%d", m.tokenSeq)
	if m.Config.AccessTTL > 0 {
		claims := jwt.RegisteredClaims{
			ID:        strconv.Itoa(m.tokenSeq),
			Subject:   m.Config.User.Username,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.Config.AccessTTL)),
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
		if err == nil {
			token = signed
		}
	}
	m.validAccess[token] = true
	return token
}

func (m *MockAPIServer) issueRefreshLocked() string {
	m.tokenSeq++
	token := fmt.Sprintf("refresh-%d", m.tokenSeq)
	m.validRefresh[token] = true
	return token
}

func (m *MockAPIServer) allocID() int {
	id := m.nextID
	m.nextID++
	return id
}

// Middleware

func (m *MockAPIServer) logRequest(c *gin.Context) {
	var body []byte
	if c.Request.Body != nil {
		body, _ = io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	}

	m.mu.Lock()
	m.requestLog = append(m.requestLog, RequestInfo{
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		Authorization: c.GetHeader("Authorization"),
		RequestID:     c.GetHeader("X-Request-Id"),
		Headers:       c.Request.Header.Clone(),
		Body:          body,
		Timestamp:     time.Now(),
		QueryParams:   c.Request.URL.Query(),
	})
	m.mu.Unlock()

	c.Next()
}

func (m *MockAPIServer) requireAuth(c *gin.Context) {
	if !m.authorized(c.GetHeader("Authorization")) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Given token not valid for any token type"})
		return
	}
	c.Next()
}

// optionalAuth lets anonymous requests through but rejects bad tokens
func (m *MockAPIServer) optionalAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.Next()
		return
	}
	m.requireAuth(c)
}

func (m *MockAPIServer) authorized(header string) bool {
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Config.AlwaysUnauthorized || !m.validAccess[token] {
		return false
	}
	if m.Config.AccessTTL > 0 {
		parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return jwtSecret, nil })
		if err != nil || !parsed.Valid {
			return false
		}
	}
	return true
}

func (m *MockAPIServer) authenticated(c *gin.Context) bool {
	return c.GetHeader("Authorization") != ""
}

// Auth handlers

func (m *MockAPIServer) handleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if req.Email != m.Config.User.Email || req.Password != m.Config.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "No active account found with the given credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": m.issueAccessLocked(), "refresh": m.issueRefreshLocked()})
}

func (m *MockAPIServer) handleRegister(c *gin.Context) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		Password2 string `json:"password2"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if req.Email == m.Config.User.Email {
		c.JSON(http.StatusBadRequest, gin.H{"email": []string{"user with this email already exists."}})
		return
	}
	if req.Password != req.Password2 {
		c.JSON(http.StatusBadRequest, gin.H{"password": []string{"Password fields didn't match."}})
		return
	}

	m.Config.User = UserInfo{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  strings.Split(req.Email, "@")[0],
	}
	m.Config.Password = req.Password

	if m.Config.RegisterReturnsTokens {
		c.JSON(http.StatusCreated, gin.H{"access": m.issueAccessLocked(), "refresh": m.issueRefreshLocked()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": m.Config.User, "message": "User created successfully"})
}

func (m *MockAPIServer) handleRefresh(c *gin.Context) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	_ = c.ShouldBindJSON(&req)

	m.mu.Lock()
	m.refreshCount++
	delay := m.Config.RefreshDelay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Config.RefreshFails || !m.validRefresh[req.Refresh] {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": m.issueAccessLocked()})
}

func (m *MockAPIServer) handleProfile(c *gin.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.JSON(http.StatusOK, m.Config.User)
}

// Quiz handlers

func (m *MockAPIServer) handleListMine(c *gin.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paginate(c, m.filterQuizzes(func(q *FakeQuiz) bool { return q.Owner == m.Config.User.Username }))
}

func (m *MockAPIServer) handleListPublic(c *gin.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paginate(c, m.filterQuizzes(func(q *FakeQuiz) bool { return q.IsPublic }))
}

func (m *MockAPIServer) handleSearch(c *gin.Context) {
	term := strings.ToLower(c.Query("q"))

	m.mu.Lock()
	defer m.mu.Unlock()
	matches := m.filterQuizzes(func(q *FakeQuiz) bool {
		visible := q.IsPublic || q.Owner == m.Config.User.Username
		return visible && strings.Contains(strings.ToLower(q.Title), term)
	})
	out := make([]gin.H, 0, len(matches))
	for _, q := range matches {
		out = append(out, quizJSON(q))
	}
	c.JSON(http.StatusOK, out)
}

func (m *MockAPIServer) handleHistory(c *gin.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []gin.H{}
	for i := len(m.history) - 1; i >= 0; i-- {
		if q, ok := m.quizzes[m.history[i]]; ok {
			out = append(out, quizJSON(q))
		}
	}
	c.JSON(http.StatusOK, out)
}

func (m *MockAPIServer) handleGetQuiz(c *gin.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.visibleQuiz(c)
	if !ok {
		return
	}
	if m.authenticated(c) {
		q.LastAccessed = time.Now().UTC()
		m.touchHistory(q.ID)
	}
	c.JSON(http.StatusOK, quizJSON(q))
}

func (m *MockAPIServer) handleCreateQuiz(c *gin.Context) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		IsPublic    bool   `json:"is_public"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"title": []string{"This field is required."}})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	q := &FakeQuiz{
		ID:          m.allocID(),
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		Owner:       m.Config.User.Username,
		CreatedAt:   time.Now().UTC(),
	}
	m.quizzes[q.ID] = q
	c.JSON(http.StatusCreated, quizJSON(q))
}

func (m *MockAPIServer) handleUpdateQuiz(c *gin.Context) {
	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		IsPublic    *bool   `json:"is_public"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.ownedQuiz(c)
	if !ok {
		return
	}
	if req.Title != nil {
		q.Title = *req.Title
	}
	if req.Description != nil {
		q.Description = *req.Description
	}
	if req.IsPublic != nil {
		q.IsPublic = *req.IsPublic
	}
	c.JSON(http.StatusOK, quizJSON(q))
}

func (m *MockAPIServer) handleDeleteQuiz(c *gin.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.ownedQuiz(c)
	if !ok {
		return
	}
	delete(m.quizzes, q.ID)
	for id, question := range m.questions {
		if question.QuizID == q.ID {
			delete(m.questions, id)
		}
	}
	c.Status(http.StatusNoContent)
}

// Question handlers

type questionBody struct {
	QuestionText  string   `json:"question_text"`
	QuestionType  string   `json:"question_type"`
	Choices       []string `json:"choices"`
	CorrectAnswer string   `json:"correct_answer"`
	Answer        string   `json:"answer"`
}

func (m *MockAPIServer) handleQuestions(c *gin.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.visibleQuiz(c)
	if !ok {
		return
	}

	mcq, written := []gin.H{}, []gin.H{}
	for _, question := range m.sortedQuestions(q.ID) {
		if question.Type == "mcq" {
			mcq = append(mcq, questionJSON(question))
		} else {
			written = append(written, questionJSON(question))
		}
	}
	c.JSON(http.StatusOK, gin.H{"mcq_questions": mcq, "written_questions": written})
}

func (m *MockAPIServer) handleCreateQuestion(c *gin.Context) {
	var req questionBody
	if err := c.ShouldBindJSON(&req); err != nil || req.QuestionText == "" {
		c.JSON(http.StatusBadRequest, gin.H{"question_text": []string{"This field is required."}})
		return
	}
	if req.QuestionType != "mcq" && req.QuestionType != "written" {
		c.JSON(http.StatusBadRequest, gin.H{"question_type": []string{"Invalid question type."}})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.ownedQuiz(c)
	if !ok {
		return
	}
	question := &FakeQuestion{
		ID:            m.allocID(),
		QuizID:        q.ID,
		Type:          req.QuestionType,
		Text:          req.QuestionText,
		Choices:       req.Choices,
		CorrectAnswer: req.CorrectAnswer,
		Answer:        req.Answer,
	}
	m.questions[question.ID] = question
	c.JSON(http.StatusCreated, questionJSON(question))
}

func (m *MockAPIServer) handleUpdateQuestion(c *gin.Context) {
	var req questionBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	question, ok := m.typedQuestion(c)
	if !ok {
		return
	}
	question.Text = req.QuestionText
	question.Choices = req.Choices
	question.CorrectAnswer = req.CorrectAnswer
	question.Answer = req.Answer
	c.JSON(http.StatusOK, questionJSON(question))
}

func (m *MockAPIServer) handleDeleteQuestion(c *gin.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	question, ok := m.typedQuestion(c)
	if !ok {
		return
	}
	delete(m.questions, question.ID)
	c.Status(http.StatusNoContent)
}

func (m *MockAPIServer) handleExtract(c *gin.Context) {
	req := &ExtractionRequest{
		Type:   c.PostForm("type"),
		QuizID: c.PostForm("quizId"),
		Text:   c.PostForm("text"),
	}
	if file, err := c.FormFile("file"); err == nil {
		req.FileName = file.Filename
		if f, err := file.Open(); err == nil {
			req.FileData, _ = io.ReadAll(f)
			f.Close()
		}
	}
	if req.Text == "" && req.FileName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide text or a file"})
		return
	}

	m.mu.Lock()
	m.lastExtraction = req
	body := m.Config.ExtractResponse
	m.mu.Unlock()

	c.JSON(http.StatusOK, body)
}

// Lookup helpers, called with m.mu held

func (m *MockAPIServer) quizParam(c *gin.Context) (*FakeQuiz, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	q, ok := m.quizzes[id]
	if err != nil || !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return nil, false
	}
	return q, true
}

func (m *MockAPIServer) visibleQuiz(c *gin.Context) (*FakeQuiz, bool) {
	q, ok := m.quizParam(c)
	if !ok {
		return nil, false
	}
	if !q.IsPublic && (!m.authenticated(c) || q.Owner != m.Config.User.Username) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return nil, false
	}
	return q, true
}

func (m *MockAPIServer) ownedQuiz(c *gin.Context) (*FakeQuiz, bool) {
	q, ok := m.quizParam(c)
	if !ok {
		return nil, false
	}
	if q.Owner != m.Config.User.Username {
		c.JSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
		return nil, false
	}
	return q, true
}

func (m *MockAPIServer) typedQuestion(c *gin.Context) (*FakeQuestion, bool) {
	q, ok := m.ownedQuiz(c)
	if !ok {
		return nil, false
	}
	qid, err := strconv.Atoi(c.Param("qid"))
	question, found := m.questions[qid]
	if err != nil || !found || question.QuizID != q.ID || question.Type != c.Param("kind") {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return nil, false
	}
	return question, true
}

func (m *MockAPIServer) filterQuizzes(keep func(*FakeQuiz) bool) []*FakeQuiz {
	out := []*FakeQuiz{}
	for _, q := range m.quizzes {
		if keep(q) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MockAPIServer) sortedQuestions(quizID int) []*FakeQuestion {
	out := []*FakeQuestion{}
	for _, q := range m.questions {
		if q.QuizID == quizID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MockAPIServer) touchHistory(id int) {
	filtered := m.history[:0]
	for _, h := range m.history {
		if h != id {
			filtered = append(filtered, h)
		}
	}
	m.history = append(filtered, id)
}

func (m *MockAPIServer) paginate(c *gin.Context, quizzes []*FakeQuiz) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}

	start := (page - 1) * size
	if start > len(quizzes) {
		start = len(quizzes)
	}
	end := start + size
	if end > len(quizzes) {
		end = len(quizzes)
	}

	results := make([]gin.H, 0, end-start)
	for _, q := range quizzes[start:end] {
		results = append(results, quizJSON(q))
	}

	pageURL := func(p int) interface{} {
		return fmt.Sprintf("%s%s?page=%d&page_size=%d", m.URL, c.Request.URL.Path, p, size)
	}
	var next, previous interface{}
	if end < len(quizzes) {
		next = pageURL(page + 1)
	}
	if page > 1 {
		previous = pageURL(page - 1)
	}

	c.JSON(http.StatusOK, gin.H{
		"count":    len(quizzes),
		"next":     next,
		"previous": previous,
		"results":  results,
	})
}

func quizJSON(q *FakeQuiz) gin.H {
	out := gin.H{
		"id":             q.ID,
		"title":          q.Title,
		"description":    q.Description,
		"is_public":      q.IsPublic,
		"owner_username": q.Owner,
		"created_at":     q.CreatedAt.Format(time.RFC3339),
	}
	if !q.LastAccessed.IsZero() {
		out["last_accessed"] = q.LastAccessed.Format(time.RFC3339)
	}
	return out
}

func questionJSON(q *FakeQuestion) gin.H {
	out := gin.H{"id": q.ID, "question_text": q.Text}
	if q.Type == "mcq" {
		choices := q.Choices
		if choices == nil {
			choices = []string{}
		}
		out["choices"] = choices
		out["correct_answer"] = q.CorrectAnswer
	} else {
		out["answer"] = q.Answer
	}
	return out
}

// Utility methods for test assertions

// Requests returns a copy of the request log
func (m *MockAPIServer) Requests() []RequestInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RequestInfo(nil), m.requestLog...)
}

// GetRequestCount returns the number of requests made with method to path
func (m *MockAPIServer) GetRequestCount(method, path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, req := range m.requestLog {
		if req.Method == method && req.Path == path {
			count++
		}
	}
	return count
}

// GetLastRequest returns the most recent request to a specific path
func (m *MockAPIServer) GetLastRequest(path string) *RequestInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.requestLog) - 1; i >= 0; i-- {
		if m.requestLog[i].Path == path {
			req := m.requestLog[i]
			return &req
		}
	}
	return nil
}

// LastExtraction returns the fields of the last extraction request
func (m *MockAPIServer) LastExtraction() *ExtractionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastExtraction
}

// Quiz returns a copy of a stored quiz
func (m *MockAPIServer) Quiz(id int) (FakeQuiz, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[id]
	if !ok {
		return FakeQuiz{}, false
	}
	return *q, true
}

// QuestionCount returns how many questions a quiz has
func (m *MockAPIServer) QuestionCount(quizID int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sortedQuestions(quizID))
}

// ClearRequestLog clears the request log
func (m *MockAPIServer) ClearRequestLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestLog = nil
}
