package domain

// User описывает текущую сессию покупателя или администратора.
// Identity assertion (подписанный Telegram payload) клиент не интерпретирует,
// а лишь пересылает бэкенду как есть.
type User struct {
	ID       int64
	Username string
	IsAdmin  bool
}

// Known сообщает, загружена ли сессия с бэкенда.
func (u User) Known() bool {
	return u.ID != 0
}
