package main

import (
	"flag"
	"log"

	"github.com/suenchunyu/wordcount/internal/config"
	"github.com/suenchunyu/wordcount/internal/monitor"
	"github.com/suenchunyu/wordcount/internal/pkg/server"
)

var (
	configFileName = flag.String("config", "", "job config filename, only the monitor section is used")
)

func main() {
	flag.Parse()

	c := config.Default()

	if *configFileName != "" {
		if err := config.Load(*configFileName, c); err != nil {
			log.Fatalln(err)
		}
	}

	s, err := server.New(
		server.WithNetwork(server.NetworkFromString(c.Monitor.Network)),
		server.WithFlag(server.FlagMonitor),
		server.WithAddr(c.Monitor.Host),
		server.WithPort(c.Monitor.Port),
	)
	if err != nil {
		log.Fatalln(err)
	}

	m := monitor.New()
	monitor.RegisterMonitorServiceServer(s.Raw(), m)
	s.StopHook(func() error {
		for _, task := range m.Tasks() {
			status, _ := m.Latest(task)
			log.Printf("[%s] last status: %s\n", task, status.Message)
		}
		log.Printf("totals: %s\n", m.Totals())
		return nil
	})

	if err := s.Start(); err != nil {
		log.Fatalln(err)
	}
}
