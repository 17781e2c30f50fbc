// Package fetch acquires raw content for a subscription source. Remote
// sources go through HTTP with a bounded retry policy; inline and file
// sources never touch the network.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"
	"unicode/utf8"

	"github.com/clashgen/clashgen/internal/model"
)

type Options struct {
	Timeout    time.Duration // per attempt; default 15s
	MaxRetries int           // total attempts; default 3
	RetryDelay time.Duration // fixed delay between attempts; default 2s
	MaxBytes   int64         // default 5 MiB
	UserAgent  string
}

func (o Options) withDefaults() Options {
	if o.Timeout == 0 {
		o.Timeout = 15 * time.Second
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = 2 * time.Second
	}
	if o.MaxBytes == 0 {
		o.MaxBytes = 5 * 1024 * 1024
	}
	if o.UserAgent == "" {
		// Many providers gate on a client UA.
		o.UserAgent = "clash-verge/v1.6.6"
	}
	return o
}

type FetchError struct {
	AppError model.AppError
	Cause    error
}

func (e *FetchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

var (
	errTooManyRedirects  = errors.New("too many redirects")
	errRedirectBadScheme = errors.New("redirect target scheme is not http/https")
)

// Fetch resolves one source to its raw content. Inline sources return their
// text verbatim; file sources read from disk; remote sources are fetched
// with up to MaxRetries attempts. All failures are recoverable at the
// caller level: a failing source is skipped and the run continues.
func Fetch(ctx context.Context, src model.SubscriptionSource, opt Options) (string, error) {
	opt = opt.withDefaults()
	tag := src.EffectiveTag()

	switch src.Kind {
	case model.SourceInline:
		return src.Origin, nil
	case model.SourceFile:
		data, err := os.ReadFile(src.Origin)
		if err != nil {
			return "", &FetchError{
				AppError: model.AppError{
					Code:    model.CodeReadError,
					Message: "读取本地文件失败",
					Stage:   "fetch_source",
					Source:  tag,
				},
				Cause: err,
			}
		}
		return string(data), nil
	case model.SourceRemote:
		return fetchRemote(ctx, tag, src.Origin, opt)
	default:
		return "", &FetchError{
			AppError: model.AppError{
				Code:    model.CodeFetchFailed,
				Message: fmt.Sprintf("未知的订阅源类型：%d", src.Kind),
				Stage:   "fetch_source",
				Source:  tag,
			},
		}
	}
}

func fetchRemote(ctx context.Context, tag, rawURL string, opt Options) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u == nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", &FetchError{
			AppError: model.AppError{
				Code:    model.CodeFetchFailed,
				Message: "仅允许 http/https URL",
				Stage:   "fetch_source",
				Source:  tag,
			},
			Cause: err,
		}
	}

	var lastErr error
	for attempt := 1; attempt <= opt.MaxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctxError(ctx, tag)
			case <-time.After(opt.RetryDelay):
			}
		}

		body, err := fetchOnce(ctx, tag, rawURL, opt)
		if err == nil {
			return body, nil
		}
		lastErr = err

		// Context cancellation aborts the whole run; don't burn retries on it.
		if ctx.Err() != nil {
			return "", ctxError(ctx, tag)
		}
	}
	return "", lastErr
}

func ctxError(ctx context.Context, tag string) error {
	code := model.CodeFetchFailed
	msg := "拉取被取消"
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		code = model.CodeFetchTimeout
		msg = "拉取订阅超时"
	}
	return &FetchError{
		AppError: model.AppError{
			Code:    code,
			Message: msg,
			Stage:   "fetch_source",
			Source:  tag,
		},
		Cause: ctx.Err(),
	}
}

func fetchOnce(ctx context.Context, tag, rawURL string, opt Options) (string, error) {
	client := &http.Client{
		Timeout: opt.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > 5 {
				return errTooManyRedirects
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return errRedirectBadScheme
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{
			AppError: model.AppError{
				Code:    model.CodeFetchFailed,
				Message: "请求 URL 不合法",
				Stage:   "fetch_source",
				Source:  tag,
			},
			Cause: err,
		}
	}
	req.Header.Set("User-Agent", opt.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}

		var ne net.Error
		if (errors.As(err, &ne) && ne.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
			return "", &FetchError{
				AppError: model.AppError{
					Code:    model.CodeFetchTimeout,
					Message: "拉取订阅超时",
					Stage:   "fetch_source",
					Source:  tag,
				},
				Cause: err,
			}
		}
		return "", &FetchError{
			AppError: model.AppError{
				Code:    model.CodeFetchFailed,
				Message: "拉取订阅失败",
				Stage:   "fetch_source",
				Source:  tag,
			},
			Cause: err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &FetchError{
			AppError: model.AppError{
				Code:    model.CodeFetchFailed,
				Message: fmt.Sprintf("上游返回非 2xx 状态码：%d", resp.StatusCode),
				Stage:   "fetch_source",
				Source:  tag,
			},
		}
	}

	// Read at most MaxBytes+1 to detect oversize deterministically.
	body, err := io.ReadAll(io.LimitReader(resp.Body, opt.MaxBytes+1))
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return "", &FetchError{
				AppError: model.AppError{
					Code:    model.CodeFetchTimeout,
					Message: "拉取订阅超时",
					Stage:   "fetch_source",
					Source:  tag,
				},
				Cause: err,
			}
		}
		return "", &FetchError{
			AppError: model.AppError{
				Code:    model.CodeFetchFailed,
				Message: "读取订阅响应失败",
				Stage:   "fetch_source",
				Source:  tag,
			},
			Cause: err,
		}
	}
	if int64(len(body)) > opt.MaxBytes {
		return "", &FetchError{
			AppError: model.AppError{
				Code:    model.CodeFetchFailed,
				Message: fmt.Sprintf("订阅内容过大（>%d bytes）", opt.MaxBytes),
				Stage:   "fetch_source",
				Source:  tag,
			},
		}
	}
	if !utf8.Valid(body) {
		return "", &FetchError{
			AppError: model.AppError{
				Code:    model.CodeFetchFailed,
				Message: "订阅内容不是合法 UTF-8 文本",
				Stage:   "fetch_source",
				Source:  tag,
			},
		}
	}

	return string(body), nil
}
