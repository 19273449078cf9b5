package job

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/suenchunyu/wordcount/internal/model"
)

// Splits cuts every input file into byte ranges of at most size bytes
// and returns one map task per range. input is a file or a directory;
// files in a directory are taken in name order, skipping names that
// start with "_" or ".". Empty files yield no task.
func Splits(input string, size int64) ([]*model.Task, error) {
	files, err := inputFiles(input)
	if err != nil {
		return nil, err
	}

	var tasks []*model.Task
	for _, f := range files {
		for offset := int64(0); offset < f.size; offset += size {
			length := size
			if rest := f.size - offset; rest < length {
				length = rest
			}
			tasks = append(tasks, model.NewMapTask(len(tasks), f.path, offset, length))
		}
	}
	return tasks, nil
}

type inputFile struct {
	path string
	size int64
}

func inputFiles(input string) ([]inputFile, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []inputFile{{path: input, size: info.Size()}}, nil
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	var files []inputFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, inputFile{path: filepath.Join(input, name), size: info.Size()})
	}
	return files, nil
}

// ReadSplit calls fn with every record of the task's split. A split that
// does not start at the beginning of its file skips its first, partial
// line; every split reads the line that crosses its end. Together the
// splits of a file see each line exactly once.
func ReadSplit(task *model.Task, fn func(rec model.Record) error) error {
	fp, err := os.Open(task.Source)
	if err != nil {
		return err
	}
	defer fp.Close()

	if _, err := fp.Seek(task.Offset, io.SeekStart); err != nil {
		return err
	}

	br := bufio.NewReader(fp)
	pos := task.Offset
	end := task.Offset + task.Length

	if pos > 0 {
		skipped, err := br.ReadString('\n')
		pos += int64(len(skipped))
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}

	for pos <= end {
		raw, err := br.ReadString('\n')
		if len(raw) > 0 {
			if fnErr := fn(model.Record{Offset: pos, Line: trimEOL(raw)}); fnErr != nil {
				return fnErr
			}
			pos += int64(len(raw))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
