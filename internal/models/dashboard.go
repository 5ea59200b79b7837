package models

import "time"

// DayStats — агрегаты пользователя за текущие сутки.
type DayStats struct {
	TodaysCalories int64
	MealsLogged    int64
}

// Summary — сводка для главного экрана дашборда.
// HealthScore, CaloriesTarget и GoalsMet пока фиксированы.
type Summary struct {
	TodaysCalories int64  `json:"todaysCalories"`
	MealsLogged    int64  `json:"mealsLogged"`
	HealthScore    int    `json:"healthScore"`
	CaloriesTarget int    `json:"caloriesTarget"`
	GoalsMet       string `json:"goalsMet"`
}

// RecentScan — строка списка последних сканов.
type RecentScan struct {
	FoodName        string    `json:"food_name"`
	Confidence      float64   `json:"confidence"`
	Calories        int       `json:"calories"`
	HealthCondition *string   `json:"health_condition"`
	RiskLevel       *string   `json:"risk_level"`
	ScannedAt       time.Time `json:"scanned_at"`
}

// TrendPoint — калории за один день недельного тренда.
type TrendPoint struct {
	Day      string    `json:"day"`
	Date     time.Time `json:"date"`
	Calories int64     `json:"calories"`
}

// NutritionBreakdown — сумма макронутриентов за период.
type NutritionBreakdown struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
	Fiber   float64 `json:"fiber"`
}

// RiskWeek — распределение уровней риска за неделю.
type RiskWeek struct {
	Week   time.Time `json:"week"`
	High   int64     `json:"high"`
	Medium int64     `json:"medium"`
	Low    int64     `json:"low"`
}
