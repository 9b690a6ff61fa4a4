package taskset

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// SetInfo is the experiment metadata encoded in a generated file name,
// e.g. set_3_cores_4_utilization_40_tasks_20.csv.
type SetInfo struct {
	SetNo       int
	Cores       int
	Utilization int
	Tasks       int // 0 when the name does not carry it
}

// FileName renders the name the generator writes for this set.
func (s SetInfo) FileName() string {
	return fmt.Sprintf("set_%d_cores_%d_utilization_%d_tasks_%d.csv", s.SetNo, s.Cores, s.Utilization, s.Tasks)
}

// ParseSetName extracts SetInfo from a task-set path. set, cores and
// utilization are required.
func ParseSetName(path string) (SetInfo, error) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	words := strings.Split(base, "_")
	values := make(map[string]int)
	for i := 0; i+1 < len(words); i++ {
		n, err := strconv.Atoi(words[i+1])
		if err != nil {
			continue
		}
		values[words[i]] = n
		i++
	}

	var info SetInfo
	for key, dst := range map[string]*int{"set": &info.SetNo, "cores": &info.Cores, "utilization": &info.Utilization} {
		v, ok := values[key]
		if !ok {
			return SetInfo{}, fmt.Errorf("file name %q: missing %s_<n>", base, key)
		}
		*dst = v
	}
	info.Tasks = values["tasks"]
	return info, nil
}
