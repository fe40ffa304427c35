package app

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/internal/inventory"
	"github.com/talkincode/eazybuy/pkg/metrics"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	if err := a.bus.Subscribe(inventory.TopicStockChanged, a.onStockChanged); err != nil {
		zap.S().Errorf("bus subscribe error %s", err.Error())
	}

	var err error
	_, err = a.sched.AddFunc("@every 30s", func() {
		go a.SchedSystemMonitorTask()
		go a.SchedProcessMonitorTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@hourly", a.SchedDeactivateExpiredDiscounts)
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@every 10m", a.SchedReleaseStaleReservations)
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	if a.gormDB != nil {
		_, err = a.sched.AddFunc("@daily", a.SchedClearExpireData)
		if err != nil {
			zap.S().Errorf("init job error %s", err.Error())
		}
	}

	a.sched.Start()
}

// onStockChanged fires on every ledger mutation. Carts reconcile their
// lines lazily on read and again before payment, so here we only keep
// the gauge fresh.
func (a *Application) onStockChanged(productID int64) {
	available := a.ledger.GetAvailableQuantity(context.Background(), productID)
	metrics.SetGauge("stock_available", int64(available))
	zap.L().Debug("stock changed",
		zap.Int64("product_id", productID),
		zap.Int("available", available))
}

// SchedSystemMonitorTask system monitor
func (a *Application) SchedSystemMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	cpuuse, err := cpu.Percent(0, false)
	if err == nil && len(cpuuse) > 0 {
		metrics.SetGauge("system_cpuuse", int64(cpuuse[0]*100)) // Store as percentage * 100
	}

	meminfo, err := mem.VirtualMemory()
	if err == nil {
		metrics.SetGauge("system_memuse", int64(meminfo.Used/1024/1024))
	}
}

// SchedProcessMonitorTask app process monitor
func (a *Application) SchedProcessMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}

	cpuuse, err := p.CPUPercent()
	if err == nil {
		metrics.SetGauge("eazybuy_cpuuse", int64(cpuuse*100)) // Store as percentage * 100
	}

	meminfo, err := p.MemoryInfo()
	if err == nil {
		metrics.SetGauge("eazybuy_memuse", int64(meminfo.RSS/1024/1024))
	}
}

// SchedDeactivateExpiredDiscounts flips expired promo codes inactive so
// storefront lookups stop matching them.
func (a *Application) SchedDeactivateExpiredDiscounts() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	n, err := a.discountAdmin.DeactivateExpired(context.Background(), time.Now())
	if err != nil {
		zap.L().Error("failed to deactivate expired discounts", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("deactivated expired discounts", zap.Int64("count", n))
	}
}

// SchedReleaseStaleReservations reclaims inventory holds stranded by a
// crash between reserve and fulfill, so available stock recovers
// without an admin recount.
func (a *Application) SchedReleaseStaleReservations() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	minutes := a.ConfigMgr().GetInt("store", "ReservationTTLMinutes")
	if minutes <= 0 {
		minutes = 15
	}
	n, err := a.ledger.ReleaseStaleReservations(context.Background(), time.Duration(minutes)*time.Minute)
	if err != nil {
		zap.L().Error("failed to release stale reservations", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("released stale reservations", zap.Int("count", n))
	}
}

// SchedClearExpireData prunes aged operator audit log rows.
func (a *Application) SchedClearExpireData() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	idays := a.ConfigMgr().GetInt("store", "OprLogRetentionDays")
	if idays == 0 {
		idays = 365
	}
	a.gormDB.
		Where("opt_time < ? ", time.Now().
			Add(-time.Hour*24*time.Duration(idays))).Delete(domain.SysOprLog{})
}
