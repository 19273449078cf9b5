package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/suenchunyu/wordcount/internal/cache"
	"github.com/suenchunyu/wordcount/internal/config"
	"github.com/suenchunyu/wordcount/internal/job"
	"github.com/suenchunyu/wordcount/internal/model"
	"github.com/suenchunyu/wordcount/internal/monitor"
	"github.com/suenchunyu/wordcount/internal/worker"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

const usage = `Usage: wordcount [flags] <input> <output> <executable> <param1> <param2> [-skip <file>]...

The positional arguments may be left out when the config file sets them.
Flags:
`

type skipFlag []string

func (s *skipFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *skipFlag) Set(value string) error {
	*s = append(*s, value)
	return nil
}

type options struct {
	configFileName string
	caseSensitive  bool
	mappers        int
	reducers       int
	cadence        string
	dir            string
	skip           skipFlag
}

func newFlagSet(o *options, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("wordcount", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&o.configFileName, "config", "", "job config filename (YAML)")
	fs.BoolVar(&o.caseSensitive, "case-sensitive", true, "count words case-sensitively")
	fs.IntVar(&o.mappers, "mappers", 0, "parallel mapper instances")
	fs.IntVar(&o.reducers, "reducers", 0, "reduce partitions")
	fs.StringVar(&o.cadence, "cadence", "", "external command cadence: per_record or once")
	fs.StringVar(&o.dir, "dir", "", "working directory of the external command")
	fs.Var(&o.skip, "skip", "skip-pattern file, local path or s3://bucket/key (repeatable)")
	return fs
}

// splitSkip pulls "-skip <ref>" pairs out of the positional arguments so
// they may appear after the locations, as in
// wordcount in out tool.jar 1 2 -skip patterns.txt
func splitSkip(args []string) ([]string, []string, error) {
	var positional, skip []string
	for i := 0; i < len(args); i++ {
		if args[i] == "-skip" || args[i] == "--skip" {
			if i+1 >= len(args) {
				return nil, nil, fmt.Errorf("-skip needs a file")
			}
			i++
			skip = append(skip, args[i])
			continue
		}
		positional = append(positional, args[i])
	}
	return positional, skip, nil
}

// buildConfig turns command-line arguments into a configuration.
func buildConfig(args []string, output io.Writer) (*config.Config, error) {
	o := new(options)
	fs := newFlagSet(o, output)
	if err := fs.Parse(args); err != nil {
		return nil, model.NewError(model.KindConfiguration, "parse", "", err)
	}

	c := config.Default()
	if o.configFileName != "" {
		if err := config.Load(o.configFileName, c); err != nil {
			return nil, err
		}
	}

	positional, skip, err := splitSkip(fs.Args())
	if err != nil {
		return nil, model.NewError(model.KindConfiguration, "parse", "", err)
	}

	switch len(positional) {
	case 0:
	case 5:
		c.Job.Input = positional[0]
		c.Job.Output = positional[1]
		c.Exec.Artifact = positional[2]
		c.Exec.Params = []string{positional[3], positional[4]}
	default:
		fs.Usage()
		return nil, model.NewError(model.KindConfiguration, "parse", "",
			fmt.Errorf("want 5 positional arguments, got %d", len(positional)))
	}

	c.Job.SkipFiles = append(c.Job.SkipFiles, o.skip...)
	c.Job.SkipFiles = append(c.Job.SkipFiles, skip...)

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "case-sensitive":
			c.Job.CaseSensitive = o.caseSensitive
		case "mappers":
			c.Job.Mappers = o.mappers
		case "reducers":
			c.Job.Reducers = o.reducers
		case "cadence":
			c.Exec.Cadence = o.cadence
		case "dir":
			c.Exec.Dir = o.dir
		}
	})

	return c, nil
}

func monitorTarget(c *config.Config) string {
	if strings.ToLower(c.Monitor.Network) == "unix" {
		return "unix://" + c.Monitor.Host
	}
	return net.JoinHostPort(c.Monitor.Host, strconv.Itoa(c.Monitor.Port))
}

func run(ctx context.Context, args []string) int {
	c, err := buildConfig(args, os.Stderr)
	if err != nil {
		log.Println(err)
		return exitConfig
	}

	frozen, err := c.Freeze()
	if err != nil {
		log.Println(err)
		return exitConfig
	}

	var opts []job.Option

	if len(frozen.SkipFiles) > 0 {
		var getter cache.Getter
		if c.Cache.S3Endpoint != "" {
			client, err := cache.NewClient(c)
			if err != nil {
				log.Println(model.NewError(model.KindConfiguration, "s3 client", c.Cache.S3Endpoint, err))
				return exitConfig
			}
			getter = client
		}
		paths := cache.NewFetcher(c.Cache.Dir, getter).Resolve(ctx, frozen.SkipFiles)
		opts = append(opts, job.WithSkipFiles(paths))
	}

	if c.Result.Enabled {
		client, err := cache.NewClient(c)
		if err != nil {
			log.Println(model.NewError(model.KindConfiguration, "s3 client", c.Cache.S3Endpoint, err))
			return exitConfig
		}
		opts = append(opts, job.WithUploader(job.NewS3Uploader(client, c.Result.Bucket, c.Result.Prefix)))
	}

	if c.Monitor.Enabled {
		client, err := monitor.Dial(monitorTarget(c))
		if err != nil {
			log.Printf("monitor unavailable, reporting to log only: %v\n", err)
		} else {
			defer client.Close()
			opts = append(opts, job.WithReporter(worker.MultiReporter(worker.LogReporter{}, client)))
		}
	}

	result, err := job.New(frozen, opts...).Run(ctx)
	if err != nil {
		log.Printf("job %s failed: %v\n", frozen.Name, err)
		if model.KindOf(err) == model.KindConfiguration {
			return exitConfig
		}
		return exitFailed
	}

	log.Printf("job %s finished in %s: %d map tasks, %d reduce tasks, %d distinct words\n",
		frozen.Name, result.Elapsed, result.MapTasks, result.ReduceTasks, result.Words)
	log.Printf("job %s counters: %s\n", frozen.Name, result.Counters)
	return exitOK
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
