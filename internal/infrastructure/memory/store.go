package memory

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
)

var errReadOnly = errors.New("memory: escritura fuera de transacción")

// Store almacén en memoria con semántica transaccional: bloqueos por clave retenidos
// hasta Commit/Rollback y escrituras aplicadas de una sola vez al confirmar.
// Se usa en tests y con STORAGE_DRIVER=memory.
type Store struct {
	mu        sync.RWMutex
	products  map[string]*entity.Product
	branches  map[string]*entity.Branch
	stock     map[entity.StockKey]*entity.StockRecord
	movements []*entity.StockMovement
	byPair    map[entity.StockKey][]int
	nextSeq   int64
	sales     map[string]*entity.Sale
	invoices  map[string]string
	orders    map[string]*entity.PurchaseOrder
	poNumbers map[string]string
	sequences map[string]int

	locks  *keyLocks
	jitter time.Duration
}

// Option configura el Store.
type Option func(*Store)

// WithJitter introduce una espera aleatoria (hasta d) después de cada bloqueo de stock.
// Sirve para forzar intercalados en pruebas de concurrencia.
func WithJitter(d time.Duration) Option {
	return func(s *Store) { s.jitter = d }
}

// NewStore construye un almacén vacío.
func NewStore(opts ...Option) *Store {
	s := &Store{
		products:  make(map[string]*entity.Product),
		branches:  make(map[string]*entity.Branch),
		stock:     make(map[entity.StockKey]*entity.StockRecord),
		byPair:    make(map[entity.StockKey][]int),
		sales:     make(map[string]*entity.Sale),
		invoices:  make(map[string]string),
		orders:    make(map[string]*entity.PurchaseOrder),
		poNumbers: make(map[string]string),
		sequences: make(map[string]int),
		locks:     newKeyLocks(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AddProduct registra (o reemplaza) un producto del catálogo.
func (s *Store) AddProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = &p
}

// AddBranch registra (o reemplaza) una sucursal.
func (s *Store) AddBranch(b entity.Branch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branches[b.ID] = &b
}

// Products devuelve el catálogo de productos.
func (s *Store) Products() *ProductCatalog { return &ProductCatalog{s: s} }

// Branches devuelve el registro de sucursales.
func (s *Store) Branches() *BranchRegistry { return &BranchRegistry{s: s} }

// Repos repositorios de solo lectura sobre el estado confirmado.
func (s *Store) Repos() repository.TxRepos { return reposFor(s, nil) }

// TxRunner devuelve el ejecutor transaccional del almacén.
func (s *Store) TxRunner() *TxRunner { return &TxRunner{s: s} }

func (s *Store) pause() {
	if s.jitter > 0 {
		time.Sleep(rand.N(s.jitter))
	}
}

var _ repository.ProductCatalog = (*ProductCatalog)(nil)
var _ repository.BranchRegistry = (*BranchRegistry)(nil)

// ProductCatalog implementación en memoria del catálogo.
type ProductCatalog struct{ s *Store }

func (c *ProductCatalog) GetByID(_ context.Context, id string) (*entity.Product, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	p, ok := c.s.products[id]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

// BranchRegistry implementación en memoria del registro de sucursales.
type BranchRegistry struct{ s *Store }

func (r *BranchRegistry) GetByID(_ context.Context, id string) (*entity.Branch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.branches[id]
	if !ok {
		return nil, nil
	}
	out := *b
	return &out, nil
}

// keyLocks candados exclusivos por clave; cada candado es un canal con capacidad 1
// para poder abandonar la espera cuando ctx termina. La entrada se elimina cuando nadie
// la retiene ni la espera, así las claves de ventas y órdenes no se acumulan.
type keyLocks struct {
	mu sync.Mutex
	m  map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{m: make(map[string]*keyLock)}
}

func (l *keyLocks) acquire(ctx context.Context, key string) error {
	l.mu.Lock()
	e, ok := l.m[key]
	if !ok {
		e = &keyLock{ch: make(chan struct{}, 1)}
		l.m[key] = e
	}
	e.refs++
	l.mu.Unlock()
	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.unref(key, e)
		return ctx.Err()
	}
}

func (l *keyLocks) release(key string) {
	l.mu.Lock()
	e := l.m[key]
	l.mu.Unlock()
	<-e.ch
	l.unref(key, e)
}

func (l *keyLocks) unref(key string, e *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.m, key)
	}
}

func (l *keyLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
