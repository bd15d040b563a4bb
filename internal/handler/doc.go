// Package handler 定价服务的 HTTP 接口，按业务拆分在子包中：
// pricing 面向买家报价，marketing 负责优惠券核销，admin 维护加价表与汇率。
//
// 以下为 Swagger 文档的全局信息，/swagger/*any 路由展示的接口说明由各子包注释生成。
//
//	@title			Marketplace Pricing API
//	@version		1.0
//	@description	卖家加价、汇率换算、促销与优惠券叠加后的展示价格计算
//	@BasePath		/api
package handler
