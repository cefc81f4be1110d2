package handshake

import (
	"context"
	"fmt"

	"github.com/Adda-Baaj/handshake/internal/logger"
	"github.com/Adda-Baaj/handshake/pkg/interpret"
	"github.com/Adda-Baaj/handshake/pkg/uri"
	"github.com/tidwall/gjson"
)

// Input is everything one run needs from its configuration provider.
type Input struct {
	Endpoint string
	Msg      string
	URI      string
}

// Result is the state accumulated by a run. On failure it holds whatever was
// learned before the failing stage; it is never a success.
type Result struct {
	Stage   Stage
	Part1   string
	NextURL string
	Part2   string
	Code    string
	Message string
}

type firstRequest struct {
	Msg string `json:"msg"`
	URI string `json:"uri"`
}

type finalRequest struct {
	Code string `json:"code"`
}

// Workflow sequences the three exchanges of the handshake.
type Workflow struct {
	transport *Transport
	log       logger.Logger
}

// New wires a workflow over transport.
func New(transport *Transport, log logger.Logger) *Workflow {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Workflow{transport: transport, log: log}
}

// Run performs the handshake once. Every error is a *Failure wrapping one of
// TransportError, HTTPStatusError, DecodeError, MissingFieldError or EmptyValueError.
func (w *Workflow) Run(ctx context.Context, in Input) (Result, error) {
	if w == nil || w.transport == nil {
		return Result{}, fmt.Errorf("handshake workflow is not initialized")
	}

	var res Result
	fail := func(err error) (Result, error) {
		w.log.WarnObj("handshake stage failed", "handshake_failure", map[string]any{
			"stage": res.Stage.String(),
			"error": err.Error(),
		})
		return res, &Failure{Stage: res.Stage, Err: err}
	}

	// 1) msg + uri
	first, err := w.transport.PostJSON(ctx, in.Endpoint, firstRequest{Msg: in.Msg, URI: in.URI})
	if err != nil {
		return fail(err)
	}
	res.Stage = StageFirstRequestSent
	if !first.OK() {
		return fail(&HTTPStatusError{Exchange: FirstPost, Status: first.StatusCode, Excerpt: excerpt(first.Body)})
	}

	firstObj, ok := interpret.DecodeJSON(first.Body)
	if !ok {
		return fail(&DecodeError{Exchange: FirstPost, Excerpt: excerpt(first.Body)})
	}
	part1, ok := interpret.ExtractField(firstObj, interpret.FirstPartKeys)
	if !ok {
		return fail(&MissingFieldError{Field: "first code part", Aliases: interpret.FirstPartKeys})
	}
	res.Part1 = interpret.Text(part1)
	if res.Part1 == "" {
		return fail(&EmptyValueError{Field: "first code part", Source: "first response"})
	}

	next := in.URI
	if v, ok := interpret.ExtractField(firstObj, interpret.NextURIKeys); ok {
		next = interpret.Text(v)
	}
	res.NextURL = uri.Resolve(next, in.Endpoint)
	res.Stage = StageFirstParsed
	w.log.DebugObj("first code part received", "handshake_first", map[string]any{
		"next_url": res.NextURL,
	})

	// 2) designated uri
	second, err := w.transport.Get(ctx, res.NextURL)
	if err != nil {
		return fail(err)
	}
	res.Stage = StageSecondRequestSent
	if !second.OK() {
		return fail(&HTTPStatusError{Exchange: SecondGet, Status: second.StatusCode, Excerpt: excerpt(second.Body)})
	}

	part2, err := secondPart(second.Body)
	if err != nil {
		return fail(err)
	}
	res.Part2 = part2
	res.Stage = StageSecondParsed

	// 3) combined code
	res.Code = res.Part1 + res.Part2
	final, err := w.transport.PostJSON(ctx, in.Endpoint, finalRequest{Code: res.Code})
	if err != nil {
		return fail(err)
	}
	res.Stage = StageFinalRequestSent
	if !final.OK() {
		return fail(&HTTPStatusError{Exchange: FinalPost, Status: final.StatusCode, Excerpt: excerpt(final.Body)})
	}

	res.Message = finalMessage(final.Body)
	res.Stage = StageDone
	return res, nil
}

// secondPart extracts the second fragment. Non-JSON bodies are used as trimmed text;
// JSON values must be non-empty strings.
func secondPart(body []byte) (string, error) {
	obj, ok := interpret.DecodeJSON(body)
	if !ok {
		text := interpret.PlainText(body)
		if text == "" {
			return "", &EmptyValueError{Field: "second code part", Source: "designated URI response"}
		}
		return text, nil
	}

	v, ok := interpret.ExtractField(obj, interpret.SecondPartKeys)
	if !ok {
		return "", &MissingFieldError{Field: "second code part", Aliases: interpret.SecondPartKeys}
	}
	if v.Type != gjson.String || v.Str == "" {
		return "", &EmptyValueError{Field: "second code part", Source: "designated URI response"}
	}
	return v.Str, nil
}

// finalMessage picks the message field, falling back to the whole object or the raw text.
func finalMessage(body []byte) string {
	obj, ok := interpret.DecodeJSON(body)
	if !ok {
		return interpret.PlainText(body)
	}
	if v, ok := interpret.ExtractField(obj, interpret.MessageKeys); ok {
		return interpret.Text(v)
	}
	return interpret.Compact(obj)
}
