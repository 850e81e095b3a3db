package app

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/openshelf/prodsync/internal/domain"
	"github.com/openshelf/prodsync/pkg/common"
)

func (a *Application) checkSuper() {
	const superEmail = "admin@prodsync.local"
	const defaultPassword = "prodsync"

	var account domain.AuthUser
	err := a.gormDB.Where("email = ?", superEmail).First(&account).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		hash, herr := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
		if herr != nil {
			zap.L().Error("failed to hash default admin password", zap.Error(herr))
			return
		}
		if err := a.gormDB.Create(&domain.AuthUser{
			ID:        common.NextID(),
			Email:     superEmail,
			Password:  string(hash),
			Verified:  true,
			Status:    common.ENABLED,
			Remark:    "super",
			LastLogin: time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default admin account", zap.Error(err))
		} else {
			zap.L().Info("initialized default admin account", zap.String("email", superEmail))
		}
	case err != nil:
		zap.L().Error("failed to query admin account", zap.Error(err))
	}
}

// checkProducts seeds a small demo catalog on first start.
func (a *Application) checkProducts() {
	defaultProducts := []domain.Product{
		{Name: "Trà sữa", Category: "Trà", Price: "25000"},
		{Name: "Phin sữa đá", Category: "Cà phê", Price: "29000"},
		{Name: "Freeze trà xanh", Category: "Freeze", Price: "55000"},
	}

	var count int64
	a.gormDB.Model(&domain.Product{}).Count(&count)
	if count > 0 {
		return
	}

	for _, p := range defaultProducts {
		p.ID = common.NextDocID()
		p.Sort = common.NextID()
		p.CreatedAt = time.Now()
		p.UpdatedAt = p.CreatedAt
		if err := a.gormDB.Create(&p).Error; err != nil {
			zap.L().Error("failed to seed product", zap.String("name", p.Name), zap.Error(err))
		} else {
			zap.L().Info("seeded product", zap.String("name", p.Name))
		}
	}
}
