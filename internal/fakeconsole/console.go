// Package fakeconsole is a local stand-in for a paginated, token-protected
// API. It issues expiring tokens, pages through synthetic result sets and
// can fail a share of calls, so pageprof can be tried without a real console.
package fakeconsole

import (
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// APIPrefix is where the fake API is mounted.
const APIPrefix = "/api/v1"

// Options configures a Console.
type Options struct {
	Username string
	Password string

	// Totals maps a collection path to how many results it holds.
	Totals map[string]int

	// PageLimit is the maximum page size. Defaults to 50.
	PageLimit int

	// TokenTTL is how many API calls a token is accepted for. 0 means
	// tokens never expire.
	TokenTTL int

	// FailureRate is the probability of answering a call with 503.
	FailureRate float64

	// Latency is added to every collection call.
	Latency time.Duration

	// Seed makes failures reproducible.
	Seed int64
}

// Console serves the fake API.
type Console struct {
	opts Options
	log  logrus.FieldLogger

	mu     sync.Mutex
	rng    *rand.Rand
	tokens map[string]int
	calls  int
}

// New creates a Console.
func New(opts Options, log logrus.FieldLogger) *Console {
	if opts.PageLimit <= 0 {
		opts.PageLimit = 50
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Console{
		opts:   opts,
		log:    log,
		rng:    rand.New(rand.NewSource(opts.Seed)),
		tokens: make(map[string]int),
	}
}

// Handler returns the HTTP handler for the API.
func (c *Console) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group(APIPrefix)
	api.POST("/authenticate", c.authenticate)
	api.GET("/*path", c.list)
	return r
}

// Calls returns the number of collection calls served.
func (c *Console) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (c *Console) authenticate(ctx *gin.Context) {
	var creds credentials
	if err := ctx.ShouldBindJSON(&creds); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if creds.Username != c.opts.Username || creds.Password != c.opts.Password {
		c.log.WithField("username", creds.Username).Warn("rejected credentials")
		ctx.JSON(http.StatusUnauthorized, gin.H{"err": "invalid credentials"})
		return
	}

	token := uuid.NewString()
	c.mu.Lock()
	c.tokens[token] = c.opts.TokenTTL
	c.mu.Unlock()

	c.log.WithField("username", creds.Username).Info("issued token")
	ctx.JSON(http.StatusOK, gin.H{"token": token})
}

func (c *Console) list(ctx *gin.Context) {
	path := strings.Trim(ctx.Param("path"), "/")
	log := c.log.WithField("path", path)

	if !c.authorize(ctx.GetHeader("Authorization")) {
		log.Debug("rejected token")
		ctx.JSON(http.StatusUnauthorized, gin.H{"err": "unauthorized"})
		return
	}

	if c.opts.Latency > 0 {
		select {
		case <-time.After(c.opts.Latency):
		case <-ctx.Request.Context().Done():
			return
		}
	}

	total, ok := c.opts.Totals[path]
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"err": fmt.Sprintf("no such collection %q", path)})
		return
	}
	if c.fail() {
		log.Debug("simulated failure")
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"err": "simulated failure"})
		return
	}

	offset, err := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"err": "offset must be a non-negative integer"})
		return
	}
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(c.opts.PageLimit)))
	if err != nil || limit <= 0 || limit > c.opts.PageLimit {
		limit = c.opts.PageLimit
	}

	ctx.JSON(http.StatusOK, page(path, total, offset, limit))
}

// authorize consumes one use of the bearer token.
func (c *Console) authorize(header string) bool {
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++

	left, ok := c.tokens[token]
	if !ok {
		return false
	}
	if c.opts.TokenTTL == 0 {
		return true
	}
	if left <= 0 {
		delete(c.tokens, token)
		return false
	}
	c.tokens[token] = left - 1
	return true
}

func (c *Console) fail() bool {
	if c.opts.FailureRate <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Float64() < c.opts.FailureRate
}

func page(path string, total, offset, limit int) []gin.H {
	n := total - offset
	if n > limit {
		n = limit
	}
	if n < 0 {
		n = 0
	}
	items := make([]gin.H, n)
	for i := range items {
		items[i] = gin.H{"_id": fmt.Sprintf("%s-%d", path, offset+i)}
	}
	return items
}
