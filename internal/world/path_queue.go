package world

type pathNode struct {
	point  navPoint
	g      float64
	h      float64
	f      float64
	index  int
	closed bool
	parent *pathNode
}

// pathQueue is a binary min-heap on f. Each node tracks its heap index so
// improved g-scores can be re-sifted with heap.Fix instead of a linear scan.
type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool {
	if pq[i].f == pq[j].f {
		return pq[i].h < pq[j].h
	}
	return pq[i].f < pq[j].f
}

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	n := len(*pq)
	item := x.(*pathNode)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}
