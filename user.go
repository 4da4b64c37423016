package medaware

// User is an authenticated Firebase account.
type User interface {
	ID() string
	Email() string
}

type firebaseUser struct {
	uid   string
	email string
}

func NewUser(uid, email string) User {
	return &firebaseUser{uid: uid, email: email}
}

func newUserFromClaims(claims *Claims) User {
	return &firebaseUser{uid: claims.Subject, email: claims.Email}
}

func (u *firebaseUser) ID() string {
	return u.uid
}

func (u *firebaseUser) Email() string {
	return u.email
}
