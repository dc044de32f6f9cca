// Package persist keeps the session slice in durable storage.
//
// A Persistor plays the part redux-persist plays in a browser app. It is
// installed as store middleware and, after every action that changes the
// session slice, hands the new value to a single background writer. The
// stored record lives under "persist:<key>" and has the same shape
// redux-persist produces: a JSON object whose values are the JSON encodings
// of each session field, plus a "_persist" bookkeeping entry.
//
// On start the application calls Rehydrate once; Gate blocks callers (the
// router) until that has happened. A logout purges the keys the session owns
// rather than the whole store, unless the persistor is built WithPurgeAll.
//
// Writes are fire and forget. Flush waits until everything queued so far is
// committed and reports the first write error since the previous Flush.
package persist
