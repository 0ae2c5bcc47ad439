// Package ring implementa um log ordenado de capacidade fixa sobre um buffer
// circular. Ao estourar a capacidade o item mais antigo é descartado, nunca o
// mais novo.
//
// Log não é seguro para uso concorrente; quem o possui serializa o acesso.
package ring

// Log guarda no máximo Cap() itens em ordem de inserção.
type Log[T any] struct {
	buf   []T
	start int // índice do item mais antigo
	n     int
}

// New cria um log com a capacidade dada (mínimo 1).
func New[T any](capacity int) *Log[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Log[T]{buf: make([]T, capacity)}
}

func (l *Log[T]) Len() int { return l.n }
func (l *Log[T]) Cap() int { return len(l.buf) }

// Push insere v como item mais novo. Se o log estava cheio, devolve o item
// descartado e evicted=true.
func (l *Log[T]) Push(v T) (old T, evicted bool) {
	if l.n < len(l.buf) {
		l.buf[(l.start+l.n)%len(l.buf)] = v
		l.n++
		return old, false
	}
	old = l.buf[l.start]
	l.buf[l.start] = v
	l.start = (l.start + 1) % len(l.buf)
	return old, true
}

// At devolve o i-ésimo item contando do mais antigo (0) ao mais novo (Len()-1).
func (l *Log[T]) At(i int) T {
	if i < 0 || i >= l.n {
		panic("ring: index out of range")
	}
	return l.buf[(l.start+i)%len(l.buf)]
}

// Last devolve o item mais novo.
func (l *Log[T]) Last() (T, bool) {
	var zero T
	if l.n == 0 {
		return zero, false
	}
	return l.At(l.n - 1), true
}

// Oldest copia os itens do mais antigo para o mais novo.
func (l *Log[T]) Oldest() []T {
	out := make([]T, l.n)
	for i := range out {
		out[i] = l.At(i)
	}
	return out
}

// Newest copia os itens do mais novo para o mais antigo.
func (l *Log[T]) Newest() []T {
	out := make([]T, l.n)
	for i := range out {
		out[i] = l.At(l.n - 1 - i)
	}
	return out
}

// Reset esvazia o log mantendo a capacidade.
func (l *Log[T]) Reset() {
	clear(l.buf)
	l.start, l.n = 0, 0
}

// Resize troca a capacidade preservando os itens mais novos que couberem.
func (l *Log[T]) Resize(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	items := l.Oldest()
	if len(items) > capacity {
		items = items[len(items)-capacity:]
	}
	l.buf = make([]T, capacity)
	l.start = 0
	l.n = copy(l.buf, items)
}
