package roomcache

import "sort"

// RegisterListener adds listener to room's set for targetLang. A listener
// belongs to at most one language set per room, so any previous registration
// is removed first.
func (c *Cache) RegisterListener(room, listener, targetLang string) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	langs, ok := c.listeners[room]
	if !ok {
		langs = make(map[string]map[string]struct{})
		c.listeners[room] = langs
	}
	for lang, set := range langs {
		if lang != targetLang {
			delete(set, listener)
			if len(set) == 0 {
				delete(langs, lang)
			}
		}
	}
	set, ok := langs[targetLang]
	if !ok {
		set = make(map[string]struct{})
		langs[targetLang] = set
	}
	set[listener] = struct{}{}
}

// UnregisterListener removes listener from room entirely. Empty language
// sets and empty rooms are collapsed.
func (c *Cache) UnregisterListener(room, listener string) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	langs, ok := c.listeners[room]
	if !ok {
		return
	}
	for lang, set := range langs {
		delete(set, listener)
		if len(set) == 0 {
			delete(langs, lang)
		}
	}
	if len(langs) == 0 {
		delete(c.listeners, room)
	}
}

// ListenersForLanguage returns a sorted snapshot of the listeners registered
// to targetLang in room. The snapshot never aliases internal state.
func (c *Cache) ListenersForLanguage(room, targetLang string) []string {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	set := c.listeners[room][targetLang]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ListenerLanguages returns a sorted snapshot of the target languages with
// at least one listener in room.
func (c *Cache) ListenerLanguages(room string) []string {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	langs := c.listeners[room]
	if len(langs) == 0 {
		return nil
	}
	out := make([]string, 0, len(langs))
	for lang := range langs {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}
