package global

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"
)

const (
	mb = 1000000
	kb = 1000

	defaultMaxLogSize = 2.5 * mb
	defaultMaxLogs    = 3
)

// RollingFileWriter appends to <dir>/<name>.log and, once that file grows past MaxSize, archives it
// as <name>-1.log, shifting older archives up by one. At most MaxFiles files are kept, the live
// one included.
type RollingFileWriter struct {
	mu sync.Mutex

	FileDirectory string
	FileName      string
	MaxSize       int64
	MaxFiles      int
}

func NewRollingFileWriter(fileDir string, fileName string) (*RollingFileWriter, error) {
	absFileDir, err := filepath.Abs(fileDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(absFileDir, 0750); err != nil {
		return nil, err
	}

	return &RollingFileWriter{
		FileDirectory: absFileDir,
		FileName:      fileName,
		MaxSize:       defaultMaxLogSize,
		MaxFiles:      defaultMaxLogs,
	}, nil
}

func (w *RollingFileWriter) getFullFilePath() string {
	return filepath.Join(w.FileDirectory, fmt.Sprintf("%s.log", w.FileName))
}

func (w *RollingFileWriter) indexedLog(index int64) string {
	return filepath.Join(w.FileDirectory, fmt.Sprintf("%s-%d.log", w.FileName, index))
}

// archivedLogs returns every <name>-*.log file, full paths.
func (w *RollingFileWriter) archivedLogs() ([]string, error) {
	logMatches, err := fs.Glob(os.DirFS(w.FileDirectory), w.FileName+"-*.log")
	if err != nil {
		return nil, err
	}

	return lo.Map(logMatches, func(log string, _ int) string {
		return filepath.Join(w.FileDirectory, log)
	}), nil
}

func (w *RollingFileWriter) Write(b []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if stats, err := os.Stat(w.getFullFilePath()); err == nil {
		if stats.Size() > 0 && stats.Size()+int64(len(b)) > w.MaxSize {
			if err := w.rotate(); err != nil {
				return 0, err
			}
		}
	}

	mainLogFile, err := os.OpenFile(w.getFullFilePath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return 0, err
	}
	defer mainLogFile.Close()

	return mainLogFile.Write(b)
}

func (w *RollingFileWriter) rotate() error {
	logs, err := w.archivedLogs()
	if err != nil {
		return err
	}

	indices := lo.FilterMap(logs, func(log string, _ int) (int64, bool) {
		index := getLogIndex(w.FileName, log)
		if index < 1 {
			// get rid of messed up log files
			os.Remove(log)
			return 0, false
		}
		return index, true
	})

	// Highest first so no rename overwrites a file that still has to move
	slices.Sort(indices)
	slices.Reverse(indices)

	for _, index := range indices {
		if index+1 >= int64(w.MaxFiles) {
			if err := os.Remove(w.indexedLog(index)); err != nil {
				return err
			}
			continue
		}

		if err := os.Rename(w.indexedLog(index), w.indexedLog(index+1)); err != nil {
			return err
		}
	}

	if w.MaxFiles <= 1 {
		return os.Remove(w.getFullFilePath())
	}
	return os.Rename(w.getFullFilePath(), w.indexedLog(1))
}

// getLogIndex returns the archive number of a log file, or -1 if it has none.
func getLogIndex(baseFileName string, filePath string) int64 {
	fileName, _ := strings.CutSuffix(filepath.Base(filePath), ".log")
	indexStr, ok := strings.CutPrefix(fileName, baseFileName+"-")
	if !ok {
		return -1
	}

	index, err := strconv.ParseInt(indexStr, 10, 32)
	if err != nil {
		return -1
	}
	return index
}
