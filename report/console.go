package report

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"f0oster/adaudit/enumeration"

	"github.com/olekukonko/tablewriter"
)

const banner = `
   _   ___     _  _   _ ___ ___ _____
  /_\ |   \   /_\| | | |   \_ _|_   _|
 / _ \| |) | / _ \ |_| | |) | | || |
/_/ \_\___/_/   \_\___/|___/___||_|
`

var bannerColors = []string{
	"\033[36m", // cyan
	"\033[35m", // magenta
	"\033[33m", // yellow
	"\033[32m", // green
	"\033[31m", // red
	"\033[34m", // blue
}

const colorReset = "\033[0m"

// PrintBanner writes the startup banner, one randomly colored line at a
// time.
func PrintBanner() {
	for _, line := range strings.Split(banner, "\n") {
		color := bannerColors[rand.Intn(len(bannerColors))]
		fmt.Printf("%s%s%s\n", color, line, colorReset)
	}
}

// ConsoleObserver renders the engine's progress events as console lines,
// one advance per completed query.
type ConsoleObserver struct {
	total int
	done  int
}

func NewConsoleObserver() *ConsoleObserver {
	return &ConsoleObserver{}
}

func (c *ConsoleObserver) RunStarted(total int) {
	c.total = total
	c.done = 0
	fmt.Printf("Scanning AD, %d categories...\n", total)
}

func (c *ConsoleObserver) QueryStarted(category enumeration.Category) {
	fmt.Printf("[*] %s\n", category)
}

func (c *ConsoleObserver) QueryFinished(category enumeration.Category, found int) {
	c.done++
	fmt.Printf("[%d/%d] %s: %d found\n", c.done, c.total, category, found)
}

func (c *ConsoleObserver) QueryFailed(category enumeration.Category, err error) {
	c.done++
	log.Printf("[%d/%d] %s skipped: %v", c.done, c.total, category, err)
}

// PrintSummary renders the per-category counts table for the finished run.
func PrintSummary(aggregate *enumeration.Aggregate) {
	fmt.Printf("\nRun %s against %s (%s)\n", aggregate.RunID, aggregate.Domain, aggregate.Endpoint)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Category", "Count", "Note"})
	for _, category := range enumeration.Categories() {
		note := ""
		if reason, skipped := aggregate.Failures[category]; skipped {
			note = "skipped: " + reason
		}
		table.Append([]string{string(category), strconv.Itoa(aggregate.Count(category)), note})
	}
	table.Render()
}
