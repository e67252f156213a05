package domain

import (
	"fmt"
	"math"
	"reflect"

	"github.com/goccy/go-json"
	configKit "github.com/gookit/config/v2"
	"github.com/gookit/config/v2/yaml"
	"github.com/imdario/mergo"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
)

const (
	OptionName  = "name"
	OptionShort = "short"
	OptionDesc  = "description"

	// ZeroEventPolicyFail aborts generation when a session's Poisson draw produces no events.
	ZeroEventPolicyFail = "fail"
	// ZeroEventPolicyRetry redraws the session's Poisson process with fresh randomness.
	ZeroEventPolicyRetry = "retry"
)

// Configuration encapsulates the configuration of the workload generator.
// Every tagged field is converted into a command-line flag by BindFlags and may
// also be provided through the YAML file given by the "yaml" option.
type Configuration struct {
	YAML  string `name:"yaml" yaml:"-" json:"yaml" description:"Path to config file in the yml format."`
	Debug bool   `name:"debug" yaml:"debug" json:"debug" description:"Display debug logs."`

	//////////////
	// Workload //
	//////////////
	WorkloadName    string `name:"workload-name" yaml:"workload-name" json:"workload-name" description:"The name of the workload. By default, a random UUID will be generated to serve as the name."`
	NumSessions     int    `name:"num-sessions" short:"n" yaml:"num-sessions" json:"num-sessions" description:"The number of sessions to generate."`
	OutputDirectory string `name:"output-directory" short:"o" yaml:"output-directory" json:"output-directory" description:"Path to output directory."`
	NumProcs        int    `name:"num-procs" yaml:"num-procs" json:"num-procs" description:"Number of workers to use when generating sessions."`
	WriteRawData    bool   `name:"write-raw-data" yaml:"write-raw-data" json:"write-raw-data" description:"If true, write the raw event times, inter-arrival times, and durations of every session to the output directory."`

	///////////////////////
	// Session resources //
	///////////////////////
	MaxSessionMillicpus float64 `name:"max-session-millicpus" yaml:"max-session-millicpus" json:"max-session-millicpus" description:"The maximum number of millicpus to generate for a given Session."`
	MaxSessionMemoryMB  float64 `name:"max-session-memory-mb" yaml:"max-session-memory-mb" json:"max-session-memory-mb" description:"The maximum amount of memory (in MB) to generate for a given Session."`
	MaxSessionNumGPUs   int     `name:"max-session-num-gpus" yaml:"max-session-num-gpus" json:"max-session-num-gpus" description:"The maximum number of GPUs to generate for a given Session."`
	VramCdfFile         string  `name:"vram-cdf-file" yaml:"vram-cdf-file" json:"vram-cdf-file" description:"Optional CSV file with columns 'utilization' and 'cumulative_probability' describing an empirical VRAM utilization distribution."`

	/////////////////////
	// Poisson process //
	/////////////////////
	Rates               []float64 `name:"rate" short:"r" yaml:"rate" json:"rate" description:"Average rate or rates of event arrival(s) in events/second. If both rate and IAT are specified, then rate is used."`
	InterArrivalTimes   []float64 `name:"iat" short:"i" yaml:"iat" json:"iat" description:"Inter-arrival time or times (in seconds). Rates are computed from this value. Non-positive values are ignored."`
	TimeDuration        float64   `name:"time-duration" short:"d" yaml:"time-duration" json:"time-duration" description:"Time duration in seconds."`
	Shape               float64   `name:"shape" yaml:"shape" json:"shape" description:"Shape parameter of Gamma distribution for training task duration."`
	Scale               float64   `name:"scale" yaml:"scale" json:"scale" description:"Scale parameter of Gamma distribution for training task duration."`
	Seed                int64     `name:"seed" yaml:"seed" json:"seed" description:"Random seed to reproduce generation. A value of 0 seeds from the current time."`
	ZeroEventPolicy     string    `name:"zero-event-policy" yaml:"zero-event-policy" json:"zero-event-policy" description:"What to do when a session's Poisson process has no events. Options are 'fail' and 'retry'."`
	MaxZeroEventRetries int       `name:"max-zero-event-retries" yaml:"max-zero-event-retries" json:"max-zero-event-retries" description:"Number of redraws attempted per session when the zero-event policy is 'retry'."`

	//////////////////////////////
	// Knobs for the consumer   //
	//////////////////////////////
	WorkloadSeed              int64   `name:"workload-seed" yaml:"workload-seed" json:"workload-seed" description:"Seed written into the workload for the driver that replays it."`
	TimescaleAdjustmentFactor float64 `name:"timescale-adjustment-factor" yaml:"timescale-adjustment-factor" json:"timescale-adjustment-factor" description:"Multiplier applied by the driver to the duration of a tick."`
	DebugLoggingEnabled       bool    `name:"debug-logging-enabled" yaml:"debug-logging-enabled" json:"debug-logging-enabled" description:"Whether the driver that replays the workload should enable debug logging."`
}

func GetDefaultConfig() *Configuration {
	return &Configuration{
		NumSessions:               1,
		OutputDirectory:           "output",
		NumProcs:                  1,
		WriteRawData:              true,
		MaxSessionMillicpus:       8000,
		MaxSessionMemoryMB:        16000,
		MaxSessionNumGPUs:         8,
		Rates:                     []float64{1},
		InterArrivalTimes:         []float64{},
		TimeDuration:              30,
		Shape:                     2,
		Scale:                     10,
		ZeroEventPolicy:           ZeroEventPolicyFail,
		MaxZeroEventRetries:       10,
		WorkloadSeed:              0,
		TimescaleAdjustmentFactor: 0.1,
		DebugLoggingEnabled:       true,
	}
}

func (opts *Configuration) String() string {
	out, err := json.MarshalIndent(opts, "", "  ")
	if err != nil {
		panic(err)
	}

	return string(out)
}

// BindFlags registers one flag per tagged field of the Configuration on the given pflag.FlagSet.
// The current field values are used as the flag defaults.
func (opts *Configuration) BindFlags(flags *pflag.FlagSet) {
	oType := reflect.TypeOf(opts).Elem()
	oVal := reflect.ValueOf(opts).Elem()
	numField := oType.NumField()
	for i := 0; i < numField; i++ {
		field := oType.Field(i)
		if field.PkgPath != "" {
			continue
		}

		name := field.Tag.Get(OptionName)
		if name == "" {
			continue
		}
		short := field.Tag.Get(OptionShort)
		desc := field.Tag.Get(OptionDesc)
		opt := oVal.Field(i)
		switch field.Type.Kind() {
		case reflect.Bool:
			flags.BoolVarP(opt.Addr().Interface().(*bool), name, short, opt.Bool(), desc)
		case reflect.Int:
			flags.IntVarP(opt.Addr().Interface().(*int), name, short, int(opt.Int()), desc)
		case reflect.Int64:
			flags.Int64VarP(opt.Addr().Interface().(*int64), name, short, opt.Int(), desc)
		case reflect.Float64:
			flags.Float64VarP(opt.Addr().Interface().(*float64), name, short, opt.Float(), desc)
		case reflect.String:
			flags.StringVarP(opt.Addr().Interface().(*string), name, short, opt.String(), desc)
		case reflect.Slice:
			if field.Type.Elem().Kind() != reflect.Float64 {
				panic(fmt.Errorf("unsupported config slice type: %v", field.Type.Elem().Kind()))
			}
			current := opt.Interface().([]float64)
			flags.Float64SliceVarP(opt.Addr().Interface().(*[]float64), name, short, current, desc)
		default:
			panic(fmt.Errorf("unsupported config type: %v", field.Type.Kind()))
		}
	}
}

// LoadYAML merges the options found in the YAML file referenced by the "yaml" option into the Configuration.
// Values from the file override values from the command line. LoadYAML is a no-op if no file was given.
func (opts *Configuration) LoadYAML() error {
	if opts.YAML == "" {
		return nil
	}

	conf := configKit.New("workload-generator").WithOptions(func(opt *configKit.Options) {
		opt.TagName = OptionName
		// DecoderConfig initialization is due a bug in configKit: no TagName will be applied if DecoderConfig is nil.
		opt.DecoderConfig = &mapstructure.DecoderConfig{WeaklyTypedInput: true}
	})
	conf.AddDriver(yaml.Driver)
	if err := conf.LoadFiles(opts.YAML); err != nil {
		return fmt.Errorf("%w: failed to load yaml file \"%s\": %v", ErrInvalidConfiguration, opts.YAML, err)
	}

	fileOpts := &Configuration{}
	if err := conf.BindStruct("", fileOpts); err != nil {
		return fmt.Errorf("%w: failed to decode yaml file \"%s\": %v", ErrInvalidConfiguration, opts.YAML, err)
	}

	if err := mergo.Merge(opts, fileOpts, mergo.WithOverride); err != nil {
		return fmt.Errorf("%w: failed to merge yaml file \"%s\": %v", ErrInvalidConfiguration, opts.YAML, err)
	}

	// mergo skips zero values, so keys the file sets to false, 0, or "" are copied explicitly.
	opts.overrideExplicitZeros(fileOpts, conf)

	// Inter-arrival times given in the file replace any rate that the file does not also set.
	if len(fileOpts.InterArrivalTimes) > 0 && len(fileOpts.Rates) == 0 {
		opts.Rates = []float64{}
	}

	return nil
}

// overrideExplicitZeros copies every zero-valued option of fileOpts whose key is present in conf.
func (opts *Configuration) overrideExplicitZeros(fileOpts *Configuration, conf *configKit.Config) {
	oType := reflect.TypeOf(opts).Elem()
	oVal := reflect.ValueOf(opts).Elem()
	fVal := reflect.ValueOf(fileOpts).Elem()
	for i := 0; i < oType.NumField(); i++ {
		field := oType.Field(i)
		name := field.Tag.Get(OptionName)
		if name == "" || field.Tag.Get("yaml") == "-" || !fVal.Field(i).IsZero() || !conf.Exists(name, false) {
			continue
		}

		oVal.Field(i).Set(fVal.Field(i))
	}
}

// Validate checks the options that do not depend on the rate configuration.
// The rate and inter-arrival time options are resolved (and validated) by the generator.
func (opts *Configuration) Validate() error {
	if opts.NumSessions < 1 {
		return fmt.Errorf("%w: num-sessions must be at least 1 (got %d)", ErrInvalidConfiguration, opts.NumSessions)
	}

	if opts.NumProcs < 1 {
		return fmt.Errorf("%w: num-procs must be at least 1 (got %d)", ErrInvalidConfiguration, opts.NumProcs)
	}

	if !isPositive(opts.MaxSessionMillicpus) {
		return fmt.Errorf("%w: max-session-millicpus must be positive (got %f)", ErrInvalidConfiguration, opts.MaxSessionMillicpus)
	}

	if !isPositive(opts.MaxSessionMemoryMB) {
		return fmt.Errorf("%w: max-session-memory-mb must be positive (got %f)", ErrInvalidConfiguration, opts.MaxSessionMemoryMB)
	}

	if opts.MaxSessionNumGPUs < 1 {
		return fmt.Errorf("%w: max-session-num-gpus must be at least 1 (got %d)", ErrInvalidConfiguration, opts.MaxSessionNumGPUs)
	}

	if math.IsNaN(opts.TimeDuration) || math.IsInf(opts.TimeDuration, 0) || opts.TimeDuration < 1 {
		return fmt.Errorf("%w: time-duration must be at least 1 (got %f)", ErrInvalidConfiguration, opts.TimeDuration)
	}

	if !isPositive(opts.Shape) || !isPositive(opts.Scale) {
		return fmt.Errorf("%w: gamma shape and scale must be positive (got shape=%f, scale=%f)",
			ErrInvalidConfiguration, opts.Shape, opts.Scale)
	}

	if !isPositive(opts.TimescaleAdjustmentFactor) {
		return fmt.Errorf("%w: timescale-adjustment-factor must be positive (got %f)",
			ErrInvalidConfiguration, opts.TimescaleAdjustmentFactor)
	}

	switch opts.ZeroEventPolicy {
	case ZeroEventPolicyFail:
	case ZeroEventPolicyRetry:
		if opts.MaxZeroEventRetries < 1 {
			return fmt.Errorf("%w: max-zero-event-retries must be at least 1 when the zero-event policy is '%s'",
				ErrInvalidConfiguration, ZeroEventPolicyRetry)
		}
	default:
		return fmt.Errorf("%w: unknown zero-event policy '%s'", ErrInvalidConfiguration, opts.ZeroEventPolicy)
	}

	return nil
}

func isPositive(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0) && val > 0
}
