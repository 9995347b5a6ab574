package pack

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/saylorsolutions/stubpack/pkg/build"
	"github.com/saylorsolutions/stubpack/pkg/format"
	"github.com/saylorsolutions/stubpack/pkg/stub"
	"github.com/saylorsolutions/stubpack/pkg/transform"
)

// eventBuffer holds every Event a Job can send, so Run never blocks on a slow consumer.
const eventBuffer = 8

// Job packs one input executable into one output artifact.
type Job struct {
	input    string
	output   string
	codec    transform.Codec
	target   *build.Target
	tc       build.Toolchain
	workRoot string
	stubOpts []stub.ParamOpt
	logger   *slog.Logger

	events  chan Event
	started atomic.Bool
}

// JobOpt configures a Job in NewJob.
// If any JobOpt returns an error, then NewJob fails with that error.
type JobOpt = func(j *Job) error

// WithCodec selects the compression Codec. Defaults to transform.CodecZlib.
func WithCodec(codec transform.Codec) JobOpt {
	return func(j *Job) error {
		if !slices.Contains(transform.Codecs(), codec) {
			return fmt.Errorf("%w: %w: %s", ErrInvalidJob, transform.ErrUnknownCodec, codec)
		}
		j.codec = codec
		return nil
	}
}

// WithToolchain sets the Toolchain used to build the stub. Defaults to a build.GoToolchain.
func WithToolchain(tc build.Toolchain) JobOpt {
	return func(j *Job) error {
		if tc == nil {
			return fmt.Errorf("%w: nil toolchain", ErrInvalidJob)
		}
		j.tc = tc
		return nil
	}
}

// WithWorkRoot sets the directory the build's working directory is created in.
func WithWorkRoot(dir string) JobOpt {
	return func(j *Job) error {
		j.workRoot = dir
		return nil
	}
}

// WithTarget overrides the platform the stub is built for.
// Empty fields keep the value derived from the payload's classification.
func WithTarget(target build.Target) JobOpt {
	return func(j *Job) error {
		j.target = &target
		return nil
	}
}

// WithStubOptions passes options through to stub.Synthesize.
func WithStubOptions(opts ...stub.ParamOpt) JobOpt {
	return func(j *Job) error {
		j.stubOpts = append(j.stubOpts, opts...)
		return nil
	}
}

// WithLogger sets the logger for the Job and its build.
func WithLogger(logger *slog.Logger) JobOpt {
	return func(j *Job) error {
		if logger != nil {
			j.logger = logger
		}
		return nil
	}
}

// NewJob creates a Job and the channel it reports progress on.
// The channel belongs to this Job alone, and is closed after the terminal Event.
func NewJob(input, output string, opts ...JobOpt) (*Job, <-chan Event, error) {
	input, output = strings.TrimSpace(input), strings.TrimSpace(output)
	if len(input) == 0 {
		return nil, nil, fmt.Errorf("%w: missing input path", ErrInvalidJob)
	}
	if len(output) == 0 {
		return nil, nil, fmt.Errorf("%w: missing output path", ErrInvalidJob)
	}
	j := &Job{
		input:  input,
		output: output,
		codec:  transform.CodecZlib,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		events: make(chan Event, eventBuffer),
	}
	for _, opt := range opts {
		if err := opt(j); err != nil {
			return nil, nil, err
		}
	}
	return j, j.events, nil
}

// Start runs the Job in a new goroutine.
// Progress and the final Result are only available from the Job's Event channel.
func (j *Job) Start(ctx context.Context) {
	go j.Run(ctx)
}

// Run executes the Job to completion and returns its Result, which is also sent in the terminal Event.
// A Job may only run once. Later calls return a Failure wrapping ErrJobStarted and send nothing.
func (j *Job) Run(ctx context.Context) Result {
	if !j.started.CompareAndSwap(false, true) {
		return failure(FailInput, ErrJobStarted)
	}
	defer close(j.events)

	stage, res := j.run(ctx)
	msg := "Packed " + j.output
	if !res.Succeeded() {
		msg = "Failed: " + res.Err.Error()
		j.logger.Error("Packing failed", "stage", stage, "kind", res.Kind, "error", res.Err)
		stage = StageFailed
		if res.Kind == FailUnsupported {
			stage = StageUnsupported
		}
	} else {
		j.logger.Info("Packing complete", "output", j.output)
		stage = StageDone
	}
	j.events <- Event{
		Stage:   stage,
		Message: msg,
		Percent: stage.Percent(),
		Result:  &res,
	}
	return res
}

func (j *Job) emit(stage Stage, msg string, args ...any) {
	msg = fmt.Sprintf(msg, args...)
	j.logger.Debug(msg, "stage", stage)
	j.events <- Event{
		Stage:   stage,
		Message: msg,
		Percent: stage.Percent(),
	}
}

// run returns the last Stage entered along with the Result.
func (j *Job) run(ctx context.Context) (Stage, Result) {
	j.emit(StageReading, "Reading %s", j.input)
	raw, err := os.ReadFile(j.input)
	if err != nil {
		return StageReading, failure(FailInput, fmt.Errorf("%w: %v", ErrInput, err))
	}

	j.emit(StageClassifying, "Classifying %d bytes", len(raw))
	verdict := format.Classify(raw)
	if !verdict.Known() {
		return StageClassifying, failure(FailUnsupported, fmt.Errorf("%w: %s is not a well-formed ELF or PE executable", ErrUnsupportedFormat, j.input))
	}
	j.logger.Info("Classified input", "verdict", verdict.String(), "goos", verdict.GOOS, "goarch", verdict.GOARCH)

	fail := func(stage Stage, kind FailureKind, err error) (Stage, Result) {
		res := failure(kind, err)
		res.Verdict = verdict
		return stage, res
	}

	j.emit(StageCompressing, "Compressing %s payload with %s", verdict, j.codec)
	framed, err := transform.Compress(raw, j.codec, verdict.Kind)
	if err != nil {
		return fail(StageCompressing, FailTransform, err)
	}
	hdr, err := transform.ReadHeader(framed)
	if err != nil {
		return fail(StageCompressing, FailTransform, err)
	}

	j.emit(StageKeyGen, "Generating key material")
	km, err := transform.GenerateKeyMaterial()
	if err != nil {
		return fail(StageKeyGen, FailEntropy, err)
	}
	defer km.Zero()

	j.emit(StageEncrypting, "Encrypting %d bytes", len(framed))
	sealed, err := transform.Encrypt(framed, km)
	if err != nil {
		return fail(StageEncrypting, FailTransform, err)
	}
	src, err := stub.Synthesize(sealed, km, hdr, j.stubOpts...)
	km.Zero()
	if err != nil {
		return fail(StageEncrypting, FailSynthesis, err)
	}

	target := build.Target{GOOS: verdict.GOOS, GOARCH: verdict.GOARCH}
	if j.target != nil {
		if len(j.target.GOOS) > 0 {
			target.GOOS = j.target.GOOS
		}
		if len(j.target.GOARCH) > 0 {
			target.GOARCH = j.target.GOARCH
		}
	}
	if len(target.GOARCH) == 0 {
		j.logger.Warn("No Go architecture matches the payload, building for the toolchain default", "machine", verdict.Machine)
	}
	j.emit(StageBuilding, "Building stub for %s", target)
	orch := build.NewOrchestrator(j.tc, build.WorkRoot(j.workRoot), build.Logger(j.logger))
	if err := orch.Build(ctx, src.Files(), target, j.output); err != nil {
		return fail(StageBuilding, buildFailureKind(err), err)
	}
	return StageDone, Result{
		Outcome: Success,
		Verdict: verdict,
		Output:  j.output,
	}
}
