package services

import "sync"

// KeyedMutex, anahtar başına mutex. Farklı anahtarlar birbirini beklemez.
//
// Ledger append'leri conversation ID ile, interaction'lar (reaction, pin,
// oy, RSVP, edit) message ID ile kilitlenir. Kilit sayacı sıfıra düşünce
// map'ten silinir; boşta kalan anahtar bellek tutmaz.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex, boş bir KeyedMutex oluşturur.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*refMutex)}
}

// Lock, key için kilidi alır ve bırakma fonksiyonunu döner.
//
//	unlock := km.Lock(conversationID)
//	defer unlock()
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.mu.Lock()

	return func() {
		m.mu.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Len, aktif anahtar sayısı.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
