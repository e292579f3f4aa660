package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"wavebench/internal/runner"
)

// loadTestRequest is accepted as query parameters on GET and as a JSON
// body on POST.
type loadTestRequest struct {
	Requests    int               `form:"requests" json:"requests" binding:"min=1"`
	Concurrency int               `form:"concurrency" json:"concurrency" binding:"min=1"`
	Target      string            `form:"target" json:"target" binding:"omitempty,url"`
	Method      string            `form:"method" json:"method" binding:"omitempty,alpha"`
	Mode        string            `form:"mode" json:"mode" binding:"omitempty,oneof=wave pipeline"`
	Policy      string            `form:"policy" json:"policy" binding:"omitempty,oneof=any no-5xx no-errors 2xx"`
	Rate        float64           `form:"rate" json:"rate" binding:"min=0"`
	Timeout     string            `form:"timeout" json:"timeout"`
	Headers     map[string]string `form:"-" json:"headers"`
	Body        string            `form:"-" json:"body"`
}

// fieldError mirrors one failed binding rule.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var registerTagNames sync.Once

// useFormTagNames makes validator report fields by their request names.
func useFormTagNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
			if name == "" || name == "-" {
				name, _, _ = strings.Cut(f.Tag.Get("json"), ",")
			}
			return name
		})
	})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	case "url":
		return "must be an absolute URL"
	case "alpha":
		return "must contain letters only"
	}
	return "is invalid"
}

func badRequest(c *gin.Context, err error) {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		list := make([]fieldError, len(vErrs))
		msgs := make([]string, len(vErrs))
		for i, fe := range vErrs {
			list[i] = fieldError{Field: fe.Field(), Message: fieldMessage(fe)}
			msgs[i] = fe.Field() + " " + list[i].Message
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  strings.Join(msgs, "; "),
			"errors": list,
		})
		return
	}

	var rErr *runner.ValidationError
	if errors.As(err, &rErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  err.Error(),
			"errors": []fieldError{{Field: rErr.Field, Message: rErr.Reason}},
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) handleWelcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "wavebench load test API. Try GET /api/loadtest?requests=100&concurrency=10"})
}

func (s *Server) handleLoadTest(c *gin.Context) {
	useFormTagNames()

	var req loadTestRequest
	var err error
	if c.Request.Method == http.MethodPost {
		err = c.ShouldBindJSON(&req)
	} else {
		err = c.ShouldBindQuery(&req)
	}
	if err != nil {
		s.metrics.RunFinished("invalid")
		badRequest(c, err)
		return
	}

	cfg, err := s.config(req)
	if err != nil {
		s.metrics.RunFinished("invalid")
		badRequest(c, err)
		return
	}

	if !s.runs.TryAcquire(1) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many load tests running, try again later"})
		return
	}
	defer s.runs.Release(1)

	log := s.log.With(zap.String("request_id", c.GetString(ctxRequestID)))
	log.Info("load test initiated",
		zap.String("user_id", c.GetHeader("X-Forwarded-User")),
		zap.String("username", c.GetHeader("X-Forwarded-Preferred-Username")),
		zap.String("email", c.GetHeader("X-Forwarded-Email")),
		zap.String("client_ip", c.ClientIP()),
	)

	res, err := runner.Run(c.Request.Context(), cfg,
		runner.WithLogger(log),
		runner.WithMetrics(s.metrics),
	)
	if err != nil {
		var rErr *runner.ValidationError
		if errors.As(err, &rErr) {
			badRequest(c, err)
			return
		}
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, res)
}

// config turns a bound request into a runner.Config, applying the
// server's default target and request cap.
func (s *Server) config(req loadTestRequest) (runner.Config, error) {
	if s.cfg.MaxRequests > 0 && req.Requests > s.cfg.MaxRequests {
		return runner.Config{}, &runner.ValidationError{
			Field:  "requests",
			Reason: fmt.Sprintf("cannot exceed %d on this server", s.cfg.MaxRequests),
		}
	}

	cfg := runner.Config{
		URL:           req.Target,
		Method:        req.Method,
		Headers:       req.Headers,
		Body:          req.Body,
		TotalRequests: req.Requests,
		Concurrency:   req.Concurrency,
		Mode:          runner.Mode(req.Mode),
		Policy:        runner.Policy(req.Policy),
		Rate:          req.Rate,
	}
	if cfg.URL == "" {
		cfg.URL = s.cfg.DefaultTarget
	}

	if req.Timeout != "" {
		d, err := time.ParseDuration(req.Timeout)
		if err != nil || d <= 0 {
			return runner.Config{}, &runner.ValidationError{Field: "timeout", Reason: fmt.Sprintf("%q is not a positive duration", req.Timeout)}
		}
		cfg.Timeout = d
	}
	return cfg, nil
}
