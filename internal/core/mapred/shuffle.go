package mapred

import "sort"

// Group is every value shuffled to one key
type Group struct {
	Key    string
	Values []string
}

// Shuffle routes the outputs of all map tasks to n partitions and groups them by key
// groups are sorted by key; values keep map task order then emission order,
// which is an artifact of the local runner and not a contract
func Shuffle(outputs [][]KeyValue, n int) [][]Group {
	n = max(n, 1)
	idx := make([]map[string]int, n)
	parts := make([][]Group, n)
	for p := range idx {
		idx[p] = map[string]int{}
	}
	for _, task := range outputs {
		for _, kv := range task {
			p := Partition(kv.Key, n)
			i, ok := idx[p][kv.Key]
			if !ok {
				i = len(parts[p])
				idx[p][kv.Key] = i
				parts[p] = append(parts[p], Group{Key: kv.Key})
			}
			parts[p][i].Values = append(parts[p][i].Values, kv.Value)
		}
	}
	for p := range parts {
		sort.Slice(parts[p], func(a, b int) bool { return parts[p][a].Key < parts[p][b].Key })
	}
	return parts
}
