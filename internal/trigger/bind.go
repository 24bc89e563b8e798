package trigger

import (
	"github.com/EeroPaukkonen/django-celery-async-view/pkg/asyncview"
)

// Handler receives the triggers found in a rewritten document, or the error
// raised while parsing it.
type Handler func(ev asyncview.RewriteEvent, bindings []Binding, err error)

// Bind subscribes fn to bus. After every rewrite the new markup is parsed and
// fn is called once with all triggers it contains. The returned function
// removes the subscription.
func Bind(bus *asyncview.RewriteBus, fn Handler) (unbind func()) {
	return bus.Subscribe(func(ev asyncview.RewriteEvent) {
		bindings, err := ParseString(ev.HTML)
		fn(ev, bindings, err)
	})
}
